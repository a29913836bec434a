package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/medme/secwatch/pkg/apierror"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter manages per-IP limiters with automatic eviction of stale entries.
type rateLimiter struct {
	mu         sync.Mutex
	visitors   map[string]*visitor
	limit      rate.Limit
	burst      int
	maxVisitor int
	trustProxy bool
}

func newRateLimiter(requestsPerMinute, burst int, trustProxy bool) *rateLimiter {
	if burst <= 0 {
		burst = max(requestsPerMinute/4, 1)
	}
	return &rateLimiter{
		visitors:   make(map[string]*visitor),
		limit:      rate.Limit(float64(requestsPerMinute) / 60),
		burst:      burst,
		maxVisitor: 10000,
		trustProxy: trustProxy,
	}
}

// evictionLoop periodically removes stale limiters until ctx is cancelled.
func (rl *rateLimiter) evictionLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictStale(10 * time.Minute)
		}
	}
}

func (rl *rateLimiter) evictStale(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// allow reports whether ip may proceed. New IPs are rejected once maxVisitor
// limiters are tracked.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		if len(rl.visitors) >= rl.maxVisitor {
			return false
		}
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// NewRateLimiter returns middleware limiting requests per minute per client IP.
// The eviction goroutine stops when ctx is cancelled.
func NewRateLimiter(ctx context.Context, requestsPerMinute, burst int, trustProxy bool) func(http.Handler) http.Handler {
	rl := newRateLimiter(requestsPerMinute, burst, trustProxy)
	go rl.evictionLoop(ctx)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(ClientIP(r, rl.trustProxy)) {
				w.Header().Set("Retry-After", "60")
				apierror.Write(w, apierror.New(http.StatusTooManyRequests, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request.
// X-Forwarded-For is only trusted behind a known reverse proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.IndexByte(xff, ','); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
