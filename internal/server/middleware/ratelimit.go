package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type workspaceLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimit applies per-workspace rate limiting. The workspace comes from
// the actor token, then the /workspaces/{id} path segment, then the
// workspaceId query parameter; requests naming none are keyed by remote
// address. Stale limiter entries are cleaned up every 10 minutes.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*workspaceLimiter)
	)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for key, wl := range limiters {
					if wl.lastAccess.Before(cutoff) {
						delete(limiters, key)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		wl, ok := limiters[key]
		if !ok {
			wl = &workspaceLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
			limiters[key] = wl
		}
		wl.lastAccess = time.Now()
		return wl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiterFor(rateKey(r)).Allow() {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateKey(r *http.Request) string {
	if a, ok := ActorFromContext(r.Context()); ok && a.WorkspaceID != "" {
		return "ws:" + a.WorkspaceID
	}
	if id := workspaceFromPath(r.URL.Path); id != "" {
		return "ws:" + id
	}
	if id := r.URL.Query().Get("workspaceId"); id != "" {
		return "ws:" + id
	}
	return "ip:" + r.RemoteAddr
}

func workspaceFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "workspaces" {
			return parts[i+1]
		}
	}
	return ""
}
