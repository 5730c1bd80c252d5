package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"designhub/internal/common"
	"designhub/internal/platform/logger"

	"go.uber.org/zap"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter hands out one token bucket per caller key. Buckets idle for
// longer than the idle window are dropped by Sweep.
type KeyedRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *KeyedRateLimiter) Limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Sweep drops buckets not used within idle and returns how many were removed.
// A dropped caller starts again with a full bucket.
func (rl *KeyedRateLimiter) Sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Len reports how many callers currently hold a bucket.
func (rl *KeyedRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (rl *KeyedRateLimiter) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(idle); n > 0 {
				logger.Debug(ctx, "rate limiter swept idle callers", zap.Int("removed", n))
			}
		}
	}
}

// RateLimit keys on the authenticated user and falls back to the client address.
func RateLimit(rl *KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Limiter(callerKey(r)).Allow() {
				common.RespondWithJSON(w, http.StatusTooManyRequests, common.ErrorResponse{
					Error: "too many requests, please wait",
					Kind:  common.KindRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if who := IdentityFromContext(r.Context()); who != nil {
		return "user:" + who.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
