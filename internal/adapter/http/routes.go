package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	atotel "github.com/atelier-hq/atelier/internal/adapter/otel"
	"github.com/atelier-hq/atelier/internal/config"
	"github.com/atelier-hq/atelier/internal/middleware"
	"github.com/atelier-hq/atelier/internal/service"
)

// NewRouter wires the middleware chain and mounts all routes. The auth gate
// sits after request id and rate limiting, so unauthenticated callers are
// throttled too. The request timeout bounds a whole migration run; timing
// out mid-run is safe because every write is an idempotent upsert.
func NewRouter(h *Handlers, authSvc *service.AuthService, rl *middleware.RateLimiter, srvCfg config.Server, serviceName string) chi.Router {
	r := chi.NewRouter()
	r.Use(CORS(srvCfg.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(rl.Handler)
	r.Use(atotel.HTTPMiddleware(serviceName))
	r.Use(chimw.Timeout(srvCfg.RequestTimeout))
	r.Use(middleware.Auth(authSvc))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)
		r.Post("/migration/runs", h.StartRun)
		r.Get("/migration/status", h.MigrationStatus)
	})

	return r
}
