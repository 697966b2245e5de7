package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"studytrack-agent/internal/config"
	"studytrack-agent/internal/database"
	"studytrack-agent/internal/handlers"
	"studytrack-agent/internal/identity"
	"studytrack-agent/internal/router"
	"studytrack-agent/internal/storage"
	"studytrack-agent/internal/syncer"
	"studytrack-agent/internal/tracker"
	"studytrack-agent/internal/websocket"
	"studytrack-agent/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyTrack Agent...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Connect Redis (optional) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	}

	// ──── Step 3: Initialize Activity Storage ────
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.StorageType {
	case "file":
		backend, err = storage.NewFileBackend(cfg.StoragePath)
	case "redis":
		backend = storage.NewRedisBackendFromClient(redisClient)
	case "postgres":
		backend, err = storage.NewPostgresBackend(cfg.DatabaseURL)
	}
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}
	defer backend.Close()
	log.Printf("✓ Activity storage ready (%s)", cfg.StorageType)

	// ──── Step 4: Initialize Tracking Core ────
	activityStore := storage.NewActivityStore(backend)
	trackingStore := tracker.New(activityStore)
	sessions := identity.NewSessionStore(cfg.SessionPath)

	apiClient := syncer.NewClient(cfg.RemoteAPIURL)
	engine := syncer.NewEngine(
		trackingStore,
		apiClient,
		sessions,
		time.Duration(cfg.SyncTimeoutSeconds)*time.Second,
	)

	// ──── Step 5: Start Sync Scheduler ────
	scheduler := syncer.NewScheduler(
		engine,
		time.Duration(cfg.SyncIntervalSeconds)*time.Second,
		cfg.ChapterID,
		cfg.SlideID,
	)
	scheduler.Start()

	// ──── Step 6: Start Sync Worker Pool (redis only) ────
	var workerPool *worker.Pool
	if redisClient != nil {
		workerPool = worker.NewPool(redisClient, engine, cfg.SyncWorkers)
		workerPool.Start()
		log.Printf("✓ Sync worker pool started (%d goroutines)", cfg.SyncWorkers)
	}

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(trackingStore)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	var syncQueue handlers.SyncQueue
	if workerPool != nil {
		syncQueue = workerPool
	}
	activityHandler := handlers.NewActivityHandler(trackingStore, engine, syncQueue, cfg.ChapterID, cfg.SlideID)

	r := router.New(sessions, activityHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		scheduler.Stop()
		if workerPool != nil {
			workerPool.Stop()
		}
		wsHub.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyTrack Agent ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
