package middleware

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a peer exceeds its request budget.
var ErrRateLimited = errors.New("too many attempts, try again later")

// RateLimiter throttles selected procedures per peer address. It guards the
// credential endpoints against password guessing.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*peerLimiter
	rate       rate.Limit
	burst      int
	idle       time.Duration
	procedures map[string]bool
	now        func() time.Time
}

type peerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per peer with the given burst on
// each of procedures.
func NewRateLimiter(perMinute float64, burst int, procedures ...string) *RateLimiter {
	procs := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		procs[p] = true
	}
	return &RateLimiter{
		limiters:   make(map[string]*peerLimiter),
		rate:       rate.Limit(perMinute / 60),
		burst:      burst,
		idle:       10 * time.Minute,
		procedures: procs,
		now:        time.Now,
	}
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	pl, ok := rl.limiters[key]
	if !ok {
		pl = &peerLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = pl
	}
	pl.lastSeen = now
	return pl.limiter.AllowN(now, 1)
}

// Cleanup drops limiters for peers not seen within the idle window.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	for key, pl := range rl.limiters {
		if pl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// Interceptor returns a Connect interceptor enforcing the limit on the
// configured procedures.
func (rl *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !rl.procedures[req.Spec().Procedure] {
				return next(ctx, req)
			}
			if !rl.Allow(peerKey(req.Peer().Addr)) {
				return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
			}
			return next(ctx, req)
		}
	}
}

// peerKey strips the port so reconnects from one host share a budget.
func peerKey(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
