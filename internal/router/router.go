package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studytrack-agent/internal/handlers"
	"studytrack-agent/internal/identity"
	"studytrack-agent/internal/middleware"
	"studytrack-agent/internal/websocket"
)

func New(
	sessions *identity.SessionStore,
	activityHandler *handlers.ActivityHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Ingest rate limiter (600 req/min per client)
	ingestLimiter := middleware.NewRateLimiter(600, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SessionCapture(sessions))

		// ──── Activity Routes ────
		r.Route("/activities", func(r chi.Router) {
			r.Use(ingestLimiter.Middleware)
			r.Post("/", activityHandler.Add)
			r.Post("/sync", activityHandler.Sync)
			r.Post("/mark-synced", activityHandler.MarkSynced)
			r.Get("/", activityHandler.List)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
