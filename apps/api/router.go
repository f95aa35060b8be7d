package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/photohub/photohub-saas/contracts"
	clientshandler "github.com/photohub/photohub-saas/domains/clients/be/handler"
	eventshandler "github.com/photohub/photohub-saas/domains/events/be/handler"
	photographershandler "github.com/photohub/photohub-saas/domains/photographers/be/handler"
	referenceshandler "github.com/photohub/photohub-saas/domains/references/be/handler"
	studioshandler "github.com/photohub/photohub-saas/domains/studios/be/handler"
	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	platformmiddleware "github.com/photohub/photohub-saas/platform/go/middleware"
	tenantmiddleware "github.com/photohub/photohub-saas/platform/go/tenant/middleware"
)

type handlers struct {
	events        *eventshandler.Handler
	clients       *clientshandler.Handler
	studios       *studioshandler.Handler
	photographers *photographershandler.Handler
	references    *referenceshandler.Handler
}

type routerDeps struct {
	cfg      config
	logger   *zap.Logger
	auth     func(http.Handler) http.Handler
	resolver tenantmiddleware.Resolver
	handlers handlers
	// ready reports whether the backing services can take traffic. Nil means always ready.
	ready func(ctx context.Context) error
}

// newRouter assembles the HTTP surface: public health checks and docs at the root, the authenticated API under /api/v1.
func newRouter(deps routerDeps) (http.Handler, error) {
	validators := map[string]func(http.Handler) http.Handler{}
	for _, name := range []string{"events", "clients", "studios", "references", "photographers"} {
		spec, err := contracts.Load(name)
		if err != nil {
			return nil, fmt.Errorf("load %s contract: %w", name, err)
		}
		logSecuritySchemes(deps.logger, name, spec)
		validators[name] = platformmiddleware.SpecValidator(spec)
	}

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(deps.cfg.RequestTimeout),
		platformmiddleware.CORS(platformmiddleware.CORSConfig{AllowedOrigins: deps.cfg.CORSOrigins}),
	)
	rootRouter.Use(platformlogging.RequestLogger(deps.logger, "/healthz", "/readyz"))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.ready != nil {
			if err := deps.ready(r.Context()); err != nil {
				platformlogging.FromRequest(r, deps.logger).Warn("readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	registerDocsRoutes(rootRouter, deps.logger)

	apiRouter := chi.NewRouter()
	apiRouter.Use(deps.auth)
	apiRouter.Use(platformauth.RequireUser)
	apiRouter.Use(platformmiddleware.RequestTrace)

	// Account management works before the caller is a registered photographer.
	apiRouter.Group(func(r chi.Router) {
		r.Use(validators["photographers"])
		r.Mount("/photographers/me", deps.handlers.photographers.MeRoutes())
	})
	apiRouter.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole("admin"))
		r.Use(validators["photographers"])
		r.Mount("/admin/photographers", deps.handlers.photographers.AdminRoutes())
	})

	apiRouter.Group(func(r chi.Router) {
		r.Use(tenantmiddleware.WithTenantScope(deps.resolver, tenantmiddleware.Config{
			CacheTTL: deps.cfg.TenantCacheTTL,
		}))
		r.Use(platformmiddleware.RateLimit(platformmiddleware.RateLimitConfig{
			RPS:   deps.cfg.RateLimitRPS,
			Burst: deps.cfg.RateLimitBurst,
		}))

		r.Group(func(r chi.Router) {
			r.Use(validators["events"])
			deps.handlers.events.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(validators["clients"])
			r.Mount("/clients", deps.handlers.clients.Routes())
		})
		r.Group(func(r chi.Router) {
			r.Use(validators["studios"])
			r.Mount("/studios", deps.handlers.studios.Routes())
		})
		r.Group(func(r chi.Router) {
			r.Use(validators["references"])
			r.Mount("/references", deps.handlers.references.Routes())
			r.Mount("/reference-categories", deps.handlers.references.CategoryRoutes())
		})
	})

	rootRouter.Mount("/api/v1", apiRouter)
	return rootRouter, nil
}
