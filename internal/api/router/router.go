package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking/internal/http/middleware"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *handlers.AvailabilityHandler
	CalendarHandler     *handlers.CalendarHandler
	BookingHandler      *handlers.BookingHandler
	AdminHandler        *handlers.AdminHandler
	AdminToken          string
	// Production refuses to mount /admin without an AdminToken.
	Production bool
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// RateLimiter throttles the public /api routes per client IP (optional).
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"Método não permitido"}`))
	})

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.CalendarHandler != nil {
			api.Get("/config", cfg.CalendarHandler.GetConfig)
			api.Get("/holidays/{year}", cfg.CalendarHandler.GetHolidays)
		}
		if cfg.AvailabilityHandler != nil {
			api.Get("/availability", cfg.AvailabilityHandler.GetWindow)
			api.Get("/availability/{date}", cfg.AvailabilityHandler.GetDay)
		}
		if cfg.BookingHandler != nil {
			api.Post("/bookings", cfg.BookingHandler.Create)
			api.Get("/bookings", cfg.BookingHandler.Find)
		}
	})

	adminOpen := strings.TrimSpace(cfg.AdminToken) == ""
	if cfg.AdminHandler != nil && adminOpen && cfg.Production {
		if cfg.Logger != nil {
			cfg.Logger.Error("ADMIN_TOKEN is empty in production, admin routes not mounted")
		}
	} else if cfg.AdminHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			admin.Delete("/cache", cfg.AdminHandler.ClearCache)
			admin.Get("/stats", cfg.AdminHandler.Stats)
		})
	}

	return r
}
