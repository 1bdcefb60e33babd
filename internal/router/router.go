package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ecoplate-api/internal/handler"
	"ecoplate-api/internal/metrics"
	"ecoplate-api/internal/middleware"
	"ecoplate-api/internal/ratelimit"
)

// Config holds everything the router wires together.
type Config struct {
	Handler            *handler.Handler
	DropHandler        *handler.DropHandler
	ReservationHandler *handler.ReservationHandler
	UserHandler        *handler.UserHandler
	RedeemHandler      *handler.RedeemHandler
	AdminHandler       *handler.AdminHandler

	AdminKeys     []string
	RedeemLimiter ratelimit.Limiter
	CORSOrigins   []string
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Log           *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID",
			middleware.SessionHeader, middleware.AdminKeyHeader},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAdmin := middleware.RequireAdmin(cfg.AdminKeys, log.Named("admin_auth"))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Public catalogue and session-scoped customer actions
		if h := cfg.DropHandler; h != nil {
			r.Get("/drops", h.ListDrops)
			r.Get("/drops/{id}", h.GetDrop)
			r.With(middleware.RequireSession).Post("/drops/{id}/reservations", h.Reserve)
			r.With(middleware.RequireSession).Post("/drops/{id}/waitlist", h.JoinWaitlist)
		}

		if h := cfg.ReservationHandler; h != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/reservations", h.List)
				r.Get("/reservations/{id}", h.Get)
				r.Post("/reservations/{id}/cancel", h.Cancel)
				r.Post("/reservations/{id}/rating", h.Rate)
			})
		}

		if h := cfg.UserHandler; h != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/me", h.GetMe)
				r.Patch("/me", h.UpdateMe)
			})
		}

		if h := cfg.RedeemHandler; h != nil {
			r.With(requireAdmin, middleware.RateLimit(cfg.RedeemLimiter, "redeem", log)).Post("/redeem", h.Redeem)
		}

		if h := cfg.AdminHandler; h != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/drops", h.CreateDrop)
				r.Get("/drops/{id}/waitlist", h.ListWaitlist)
				r.Get("/reservations", h.ListReservations)
				r.Post("/reservations/{id}/no-show", h.MarkNoShow)
				r.Get("/no-shows", h.ListNoShows)
				r.Get("/stats", h.GetStats)
				r.Get("/redemptions", h.ListRedemptions)
			})
		}
	})

	return r
}
