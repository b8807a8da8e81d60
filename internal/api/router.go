package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	mw "github.com/tubescout-platform/tubescout/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Key management handlers
	SetKeys      http.HandlerFunc
	ListKeys     http.HandlerFunc
	ValidateKeys http.HandlerFunc
	GetQuota     http.HandlerFunc
	ResetQuota   http.HandlerFunc

	// Discovery handlers
	Search        http.HandlerFunc
	ListCountries http.HandlerFunc

	// Trending handler
	Trending http.HandlerFunc
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins   []string
	DiscoveryRateLimiter func(http.Handler) http.Handler
}

func NewRouter(rdb *redis.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks Redis
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status": "healthy",
			"redis":  "healthy",
		}
		status := http.StatusOK

		if rdb == nil || rdb.Ping(r.Context()).Err() != nil {
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/keys", func(r chi.Router) {
			r.Put("/", h.SetKeys)
			r.Get("/", h.ListKeys)
			r.Post("/validate", h.ValidateKeys)
		})

		r.Route("/quota", func(r chi.Router) {
			r.Get("/", h.GetQuota)
			r.Post("/reset", h.ResetQuota)
		})

		r.Route("/discovery", func(r chi.Router) {
			if cfg.DiscoveryRateLimiter != nil {
				r.Use(cfg.DiscoveryRateLimiter)
			}
			r.Post("/search", h.Search)
			r.Get("/countries", h.ListCountries)
		})

		r.Get("/trending", h.Trending)
	})

	return r
}
