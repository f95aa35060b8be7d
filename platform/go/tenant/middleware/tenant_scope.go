package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	platformauth "github.com/photohub/photohub-saas/platform/go/auth"
	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// Resolver confirms that a photographer id from a token belongs to a registered account.
// Implemented by the photographer store.
type Resolver interface {
	PhotographerExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional in-memory TTL cache of known photographers; zero disables caching.
	CacheTTL time.Duration
}

// WithTenantScope derives the tenant.Scope from the authenticated credentials and attaches it to the context.
// Administrators get a privileged scope. Unknown photographers are rejected with 403.
func WithTenantScope(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *scopeCache
	if cfg.CacheTTL > 0 {
		cache = newScopeCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := platformlogging.FromRequest(r, zap.NewNop())

			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil {
				problem.Write(w, problem.New("Unauthorized", "credentials required", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
				return
			}

			scope, err := tenant.Derive(creds.PhotographerID, creds.IsAdmin)
			if err != nil {
				logger.Warn("derive tenant scope", zap.Error(err))
				problem.Write(w, problem.New("Unauthorized", "invalid photographer identity", problem.TypeUnauthorized, http.StatusUnauthorized, nil))
				return
			}

			if !cache.known(scope.TenantID) {
				exists, err := resolver.PhotographerExists(r.Context(), scope.TenantID)
				if err != nil {
					logger.Error("resolve photographer", zap.Error(err))
					problem.Write(w, problem.New("Internal server error", "an unexpected error occurred", problem.TypeInternal, http.StatusInternalServerError, nil))
					return
				}
				if !exists {
					logger.Info("unknown photographer", zap.String("photographer_id", scope.TenantID.String()))
					problem.Write(w, problem.New("Forbidden", "photographer account not registered", problem.TypeForbidden, http.StatusForbidden, nil))
					return
				}
				cache.remember(scope.TenantID)
			}

			tenantField := zap.String("tenant", tenant.ShortID(scope.TenantID))
			platformlogging.Annotate(r.Context(), tenantField)
			ctx := tenant.WithScope(r.Context(), scope)
			ctx = platformlogging.WithLogger(ctx, logger.With(tenantField))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// scopeCache remembers positive lookups only, so a newly registered photographer is never blocked.
type scopeCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[uuid.UUID]time.Time
}

func newScopeCache(ttl time.Duration) *scopeCache {
	return &scopeCache{ttl: ttl, now: time.Now, items: make(map[uuid.UUID]time.Time)}
}

func (c *scopeCache) known(id uuid.UUID) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	expiresAt, ok := c.items[id]
	c.mu.RUnlock()
	return ok && c.now().Before(expiresAt)
}

func (c *scopeCache) remember(id uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items[id] = c.now().Add(c.ttl)
	c.mu.Unlock()
}
