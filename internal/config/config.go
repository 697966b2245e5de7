package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Remote tracking API
	RemoteAPIURL string

	// Storage
	StorageType string // file | redis | postgres
	StoragePath string
	RedisURL    string
	DatabaseURL string

	// Session
	SessionPath string

	// Sync
	SyncIntervalSeconds int
	SyncTimeoutSeconds  int
	SyncWorkers         int
	ChapterID           string
	SlideID             string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8090"),
		Env:                 getEnvOrDefault("ENV", "development"),
		RemoteAPIURL:        mustGetEnv("REMOTE_API_URL"),
		StorageType:         getEnvOrDefault("STORAGE_TYPE", "file"),
		StoragePath:         getEnvOrDefault("STORAGE_PATH", "./data"),
		RedisURL:            getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", ""),
		SessionPath:         getEnvOrDefault("SESSION_PATH", "./data/session.token"),
		SyncIntervalSeconds: getEnvAsIntOrDefault("SYNC_INTERVAL_SECONDS", 60),
		SyncTimeoutSeconds:  getEnvAsIntOrDefault("SYNC_TIMEOUT_SECONDS", 15),
		SyncWorkers:         getEnvAsIntOrDefault("SYNC_WORKERS", 2),
		ChapterID:           getEnvOrDefault("CHAPTER_ID", ""),
		SlideID:             getEnvOrDefault("SLIDE_ID", ""),
		FrontendURL:         getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.StorageType {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			panic("STORAGE_TYPE=redis requires REDIS_URL")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			panic("STORAGE_TYPE=postgres requires DATABASE_URL")
		}
	default:
		panic(fmt.Sprintf("unknown STORAGE_TYPE %q", cfg.StorageType))
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
