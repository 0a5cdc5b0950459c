// Package httptransport assembles the HTTP surface: middleware chain,
// module handlers, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dustledger/internal/platform/metrics"
	"dustledger/internal/platform/middleware"
	"dustledger/internal/transport/http/shared"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports backing-service reachability for /healthz.
type HealthCheck func(ctx context.Context) error

// NewRouter wires the full call surface. Operational endpoints stay outside
// the caller-auth group so probes and scrapers need no token.
func NewRouter(
	logger *slog.Logger,
	m *metrics.Metrics,
	verifier middleware.CallerVerifier,
	health HealthCheck,
	handlers ...Registrar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(m))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireCaller(verifier, logger))
		for _, handler := range handlers {
			handler.Register(r)
		}
	})
	return r
}
