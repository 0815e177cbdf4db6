// Package httptransport assembles the public HTTP surface: health,
// Prometheus metrics, the trust API behind the quota stack, and the admin
// surface behind the admin gate.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ratelimitHandler "trustgraph/internal/ratelimit/handler"
	ratelimitMiddleware "trustgraph/internal/ratelimit/middleware"
	trustHandler "trustgraph/internal/trust/handler"
)

const adminScope = "/api/admin"

// RouterConfig carries the assembled dependencies of the router.
type RouterConfig struct {
	Trust  *trustHandler.Handler
	Admin  *ratelimitHandler.Handler
	Limits *ratelimitMiddleware.Middleware
	Health http.HandlerFunc
}

// NewRouter builds the chi router. Everything under /api except /api/admin is
// authenticated and quota-metered; /api/admin requires a tier whose allow-list
// covers the admin scope plus the admin override, but consumes no quota.
// /healthz and /metrics stay open for infrastructure probes and scrapers.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(cfg.Limits.Authenticate)
		r.Use(cfg.Limits.Quota)

		r.Get("/api/health", cfg.Health)
		r.Route("/api/trust", cfg.Trust.RegisterTrust)
		r.Route("/api/bond", cfg.Trust.RegisterBond)
	})

	r.Route(adminScope, func(r chi.Router) {
		r.Use(cfg.Limits.AuthenticateScoped(adminScope))
		r.Use(cfg.Limits.RequireAdmin)
		cfg.Admin.Register(r)
	})

	return r
}
