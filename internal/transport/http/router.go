// Package httptransport assembles the HTTP surface from the feature handlers.
// It carries no business logic of its own.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	emergencyhandler "sentra/internal/emergency/handler"
	gatewayhandler "sentra/internal/gateway/handler"
	profilehandler "sentra/internal/profile/handler"
	retentionhandler "sentra/internal/retention/handler"
)

// Handlers is the set of feature handlers the router mounts. Nil entries are
// skipped, which keeps partial wiring possible in tests.
type Handlers struct {
	Gateway   *gatewayhandler.Handler
	Profile   *profilehandler.Handler
	Emergency *emergencyhandler.Handler
	Retention *retentionhandler.Handler
}

// Health reports readiness of a backing dependency.
type Health func() error

// NewRouter wires all endpoints, middleware, and operational surfaces.
func NewRouter(h Handlers, healthChecks map[string]Health) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		if h.Gateway != nil {
			h.Gateway.Register(r)
		}
		if h.Profile != nil {
			h.Profile.Register(r)
		}
		if h.Emergency != nil {
			h.Emergency.Register(r)
		}
		if h.Retention != nil {
			h.Retention.Register(r)
		}
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		for name, check := range healthChecks {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + ": " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
