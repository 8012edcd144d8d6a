// Package retry provides a fixed-backoff retry policy for best-effort operations.
package retry

import (
	"context"
	"time"
)

// Policy bounds how often an operation is attempted and how long to wait between attempts
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy returns three attempts one second apart
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Backoff: time.Second}
}

// Attempts returns the number of attempts, at least one
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it reports done, the attempts are exhausted or ctx is cancelled.
// fn receives the zero-based attempt number. The backoff is only waited between attempts.
// Do returns true if some attempt reported done.
func (p Policy) Do(ctx context.Context, fn func(attempt int) bool) bool {
	attempts := p.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if fn(attempt) {
			return true
		}
		if attempt < attempts-1 {
			if err := Sleep(ctx, p.Backoff); err != nil {
				return false
			}
		}
	}
	return false
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
