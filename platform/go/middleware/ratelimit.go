package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	platformlogging "github.com/photohub/photohub-saas/platform/go/logging"
	"github.com/photohub/photohub-saas/platform/go/problem"
	"github.com/photohub/photohub-saas/platform/go/tenant"
)

// RateLimitConfig sets the per-caller token bucket. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL evicts buckets that have not been used for this long.
	IdleTTL time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one bucket per tenant, or per client address when no scope is attached.
type rateLimiter struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RPS)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &rateLimiter{cfg: cfg, limiters: make(map[string]*limiterEntry), now: time.Now}
}

func (l *rateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.cfg.IdleTTL {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.cfg.IdleTTL {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// RateLimit throttles requests per photographer. It must run after the tenant scope middleware
// to key on the photographer; otherwise it falls back to the remote address.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newRateLimiter(cfg)
	retryAfter := strconv.Itoa(int(1/cfg.RPS) + 1)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "addr:" + r.RemoteAddr
			if scope, ok := tenant.FromContext(r.Context()); ok && scope.Valid() {
				key = "tenant:" + scope.TenantID.String()
			}

			if !limiter.allow(key) {
				if logger := platformlogging.FromRequest(r, nil); logger != nil {
					logger.Warn("rate limit exceeded", zap.String("key", key))
				}
				w.Header().Set("Retry-After", retryAfter)
				problem.Write(w, problem.New("Too many requests", "rate limit exceeded", problem.TypeRateLimited, http.StatusTooManyRequests, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
