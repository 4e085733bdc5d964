package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neoimplant/dental-assistant/internal/auth"
	"github.com/neoimplant/dental-assistant/internal/chat"
	httpmiddleware "github.com/neoimplant/dental-assistant/internal/http/middleware"
	"github.com/neoimplant/dental-assistant/internal/webchat"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	ChatHandler        *chat.Handler
	WebchatHandler     *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests/sec per IP on the public auth endpoints; 0 disables limiting.
	AuthRateLimit float64
	AuthRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Route("/auth", func(r chi.Router) {
				if cfg.AuthRateLimit > 0 {
					r.Use(httpmiddleware.RateLimit(cfg.AuthRateLimit, cfg.AuthRateBurst))
				}
				r.Mount("/", cfg.AuthHandler.Routes())
			})
		}
		// WebSocket auth rides on the token query parameter, not the
		// Authorization header, so it stays outside the bearer group.
		if cfg.WebchatHandler != nil {
			public.Get("/ws", cfg.WebchatHandler.ServeHTTP)
		}
	})

	// Patient-scoped routes (bearer token required)
	if cfg.AuthService != nil && cfg.ChatHandler != nil {
		r.Group(func(patient chi.Router) {
			patient.Use(cfg.AuthService.Middleware)
			patient.Mount("/chat", cfg.ChatHandler.Routes())
		})
	}

	return r
}
