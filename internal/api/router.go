package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wireline-chat/wireline/internal/api/middleware"
	"github.com/wireline-chat/wireline/internal/handlers"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil,
// in which case rate limiting is disabled.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, auth *middleware.AuthMiddleware, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(2 * 1024 * 1024)) // 2MB max body, import payloads included

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, logger)
		r.Use(limiter.Middleware)
	}

	// CORS - allow all origins, the browser client may be served elsewhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Health and the static browser client
	r.Get("/health", h.Health)
	r.Get("/", serveIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Post("/create-user", h.CreateUser)
		r.Post("/login-user", h.LoginUser)
		r.Post("/import", h.Import)

		// Authenticated routes (require bearer credential)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/user-auth", h.UserAuth)
			r.Post("/send-message", h.SendMessage)
			r.Post("/update-status", h.UpdateStatus)
			r.Get("/message/{otherWaId}", h.GetThread)
			r.Get("/chat-list", h.ChatList)
		})
	})

	return r
}

// serveIndex serves the browser client entry point.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, "web/static/index.html")
}
