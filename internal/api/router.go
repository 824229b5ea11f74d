package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/api/handler"
	apimw "github.com/notifyhub/orderpush/internal/api/middleware"
	"github.com/notifyhub/orderpush/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.DispatchService,
	reg prometheus.Gatherer,
	checks map[string]handler.Check,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	th := handler.NewTriggerHandler(svc, logger)
	tn := handler.NewTestNotificationHandler(svc, logger)
	hh := handler.NewHealthHandler(checks)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)

	// Raw Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Change-feed triggers: one thin adapter per trigger kind.
		r.Post("/triggers/orders/created", th.OrderCreated)
		r.Post("/triggers/orders/updated", th.OrderUpdated)

		r.Post("/notifications/test", tn.Send)
	})

	return r
}
