package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/northfield/repricer/internal/orchestrator"
	"github.com/northfield/repricer/internal/store"
)

// Config gathers the dependencies the control-plane router needs.
// WebhookPath and WebhookHandler are the marketplace-B intake adapter
// (C1); Store and Orchestrator back the health/stats/admin surface.
type Config struct {
	WebhookPath    string
	WebhookHandler http.Handler
	Store          store.Gateway
	Orchestrator   *orchestrator.Orchestrator
	Logger         *slog.Logger
}

// New builds the chi-routed control-plane handler: GET /health, GET
// /stats, the marketplace-B webhook, and the supplemented /admin routes,
// grounded on _examples/Sezy0-apis-vhz-v2/internal/router/router.go's
// chi.Mux wiring.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(recovery(cfg.Logger))
	r.Use(requestIDMiddleware)
	r.Use(requestLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Webhook-Secret", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(cfg.Store, cfg.Orchestrator))
	r.Get("/stats", statsHandler(cfg.Orchestrator))
	r.Post(cfg.WebhookPath, cfg.WebhookHandler.ServeHTTP)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/listings/reset", adminResetHandler(cfg.Store))
		r.Post("/repricing/pause", adminPauseHandler(cfg.Store))
	})

	return r
}
