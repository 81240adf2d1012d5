package collector

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives the limiter without real sleeping: sleeps advance the
// clock instead.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) bind(l *rateLimiter) {
	l.lastFill = c.now
	l.nowFn = func() time.Time { return c.now }
	l.sleepFn = func(_ context.Context, d time.Duration) error {
		c.sleeps = append(c.sleeps, d)
		c.now = c.now.Add(d)
		return nil
	}
}

func TestRateLimiterBurstThenThrottle(t *testing.T) {
	limiter := newRateLimiter(2, 2)
	clock := &fakeClock{now: time.Unix(0, 0)}
	clock.bind(limiter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("burst acquire %d: %v", i, err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("burst must not sleep, got %v", clock.sleeps)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("throttled acquire: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 500*time.Millisecond {
		t.Fatalf("2/s limiter must wait 500ms for the next token, got %v", clock.sleeps)
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	limiter := newRateLimiter(1, 1)
	clock := &fakeClock{now: time.Unix(0, 0)}
	clock.bind(limiter)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	clock.now = clock.now.Add(3 * time.Second)
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("acquire after refill: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("elapsed time must refill without sleeping, got %v", clock.sleeps)
	}
}

func TestRateLimiterCapsAtBurst(t *testing.T) {
	limiter := newRateLimiter(10, 2)
	clock := &fakeClock{now: time.Unix(0, 0)}
	clock.bind(limiter)
	ctx := context.Background()

	clock.now = clock.now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("tokens must cap at burst, got sleeps %v", clock.sleeps)
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	limiter := newRateLimiter(1, 1)
	cancelled := errors.New("cancelled")
	limiter.sleepFn = func(context.Context, time.Duration) error { return cancelled }
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := limiter.Acquire(ctx); !errors.Is(err, cancelled) {
		t.Fatalf("expected sleep error to surface, got %v", err)
	}
}

func TestRateLimiterClampsConfig(t *testing.T) {
	limiter := newRateLimiter(0, 0)
	if limiter.perSec != 1 || limiter.burst != 1 {
		t.Fatalf("invalid config must clamp to 1/s burst 1, got %+v", limiter)
	}
}

func TestSleepCtxCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short sleep: %v", err)
	}
}
