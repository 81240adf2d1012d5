package collector

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token bucket limiter. Public data sources enforce
// per-client request budgets; the collector stays below them instead of
// relying on 429 responses.
type rateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	perSec   float64
	lastFill time.Time
	nowFn    func() time.Time
	sleepFn  func(context.Context, time.Duration) error
}

func newRateLimiter(perSec float64, burst int) *rateLimiter {
	if perSec <= 0 {
		perSec = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		tokens:   float64(burst),
		burst:    float64(burst),
		perSec:   perSec,
		lastFill: time.Now(),
		nowFn:    time.Now,
		sleepFn:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Acquire blocks until a token is available or the context is cancelled.
func (l *rateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.nowFn()
		l.tokens += now.Sub(l.lastFill).Seconds() * l.perSec
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.lastFill = now
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.perSec * float64(time.Second))
		l.mu.Unlock()
		if err := l.sleepFn(ctx, wait); err != nil {
			return err
		}
	}
}
