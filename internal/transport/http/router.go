package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/emanuelef/yt-resolve-go/internal/config"
	"github.com/emanuelef/yt-resolve-go/internal/transport/http/middleware"
)

// RequestTimeout bounds synchronous lookups; acquisition runs as a job.
const RequestTimeout = 60 * time.Second

// RateLimiters holds the rate limiters for different endpoint types.
type RateLimiters struct {
	Lookup  *middleware.RateLimiter // resolve, search, stream, catalog
	Acquire *middleware.RateLimiter // job creation
	Status  *middleware.RateLimiter // polling
}

// NewRateLimiters builds the limiters described by cfg.
func NewRateLimiters(cfg *config.Config) *RateLimiters {
	return &RateLimiters{
		Lookup: middleware.NewRateLimiter(&middleware.RateLimitConfig{
			Name:              "lookup",
			RequestsPerMinute: cfg.RateLimitRPM,
			Burst:             cfg.RateLimitBurst,
		}),
		Acquire: middleware.NewRateLimiter(&middleware.RateLimitConfig{
			Name:              "acquire",
			RequestsPerMinute: cfg.RateLimitRPM,
			Burst:             cfg.RateLimitBurst,
		}),
		Status: middleware.NewRateLimiter(&middleware.RateLimitConfig{
			Name:              "status",
			RequestsPerMinute: cfg.StatusRateLimitRPM,
			Burst:             cfg.RateLimitBurst * 2,
		}),
	}
}

// Stop stops every limiter's cleanup goroutine.
func (l *RateLimiters) Stop() {
	l.Lookup.Stop()
	l.Acquire.Stop()
	l.Status.Stop()
}

// NewRouter creates a new chi router with all routes and middleware configured.
func NewRouter(cfg *config.Config, handlers *Handlers, limiters *RateLimiters) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(RequestTimeout))
	r.Use(chimiddleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/health", handlers.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitMiddleware(limiters.Status))
			r.Get("/status/{job_id}", handlers.StatusHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitMiddleware(limiters.Lookup))
			r.Get("/search", handlers.SearchHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireReference("ref"))
				r.Get("/resolve", handlers.ResolveHandler)
				r.Get("/track", handlers.TrackHandler)
				r.Get("/stream", handlers.StreamHandler)
				r.Get("/formats", handlers.FormatsHandler)
			})

			r.With(middleware.RequirePlaylistReference("ref")).Get("/playlist", handlers.PlaylistHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitMiddleware(limiters.Acquire))
			r.Post("/acquire", handlers.AcquireHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", "NOT_FOUND")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
	})

	return r
}

// NewServer creates the HTTP server. WriteTimeout leaves room for
// RequestTimeout plus encoding.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
