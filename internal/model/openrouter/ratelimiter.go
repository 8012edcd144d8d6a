package openrouter

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"webstar/fundraise-enrichment-worker/internal/logging"
)

const (
	// DefaultMaxConcurrent is the default maximum concurrent requests to OpenRouter
	DefaultMaxConcurrent = 5
	// DefaultMinDelay is the minimum delay between request starts
	DefaultMinDelay = 100 * time.Millisecond
)

// RateLimiter bounds OpenRouter calls shared by every model instance:
// at most maxConcurrent requests in flight, request starts at least minDelay apart.
type RateLimiter struct {
	slots         chan struct{}
	pace          *rate.Limiter
	maxConcurrent int
	minDelay      time.Duration
}

var (
	sharedLimiter     *RateLimiter
	sharedLimiterOnce sync.Once
)

// SharedRateLimiter returns the process-wide limiter, configured from
// OPENROUTER_MAX_CONCURRENT and OPENROUTER_MIN_DELAY_MS.
func SharedRateLimiter() *RateLimiter {
	sharedLimiterOnce.Do(func() {
		maxConcurrent := DefaultMaxConcurrent
		if n, err := strconv.Atoi(os.Getenv("OPENROUTER_MAX_CONCURRENT")); err == nil && n > 0 {
			maxConcurrent = n
		}
		minDelay := DefaultMinDelay
		if n, err := strconv.Atoi(os.Getenv("OPENROUTER_MIN_DELAY_MS")); err == nil && n >= 0 {
			minDelay = time.Duration(n) * time.Millisecond
		}

		sharedLimiter = NewRateLimiter(maxConcurrent, minDelay)

		logger := logging.Component("OpenRouterRateLimiter")
		logger.Info().Int("max_concurrent", maxConcurrent).Dur("min_delay", minDelay).Msg("initialized")
	})
	return sharedLimiter
}

// NewRateLimiter creates a limiter allowing maxConcurrent requests in flight
// with at least minDelay between request starts
func NewRateLimiter(maxConcurrent int, minDelay time.Duration) *RateLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if minDelay < 0 {
		minDelay = 0
	}

	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}

	return &RateLimiter{
		slots:         make(chan struct{}, maxConcurrent),
		pace:          rate.NewLimiter(limit, 1),
		maxConcurrent: maxConcurrent,
		minDelay:      minDelay,
	}
}

// Acquire blocks until a slot is free and the pacing delay has passed, or ctx is done.
// The returned release function frees the slot; calling it more than once is harmless.
func (r *RateLimiter) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case r.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := r.pace.Wait(ctx); err != nil {
		<-r.slots
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-r.slots })
	}, nil
}

// InUse returns the number of slots currently held
func (r *RateLimiter) InUse() int {
	return len(r.slots)
}

// MaxConcurrent returns the maximum concurrent requests allowed
func (r *RateLimiter) MaxConcurrent() int {
	return r.maxConcurrent
}
