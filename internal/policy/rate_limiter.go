// Package policy holds the admission and ownership checks applied to a
// verified identity before a mutation reaches storage.
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/time-economy/internal/types"
)

// Canonical admission policy for need creation.
const (
	DefaultWindow   = 24 * time.Hour
	DefaultMaxCount = 3
)

// CreationCounter counts an identity's records created strictly after since
// and reports the oldest such creation time (zero when count is 0).
type CreationCounter interface {
	CountCreatedSince(ctx context.Context, socialID types.SocialID, since time.Time) (count int, oldest time.Time, err error)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
	// ResetAt is when the oldest counted record leaves the window.
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter decides whether an identity may create another record in the
// current admission window.
type RateLimiter struct {
	counter CreationCounter
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter. A nil now defaults to time.Now.
func NewRateLimiter(counter CreationCounter, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{counter: counter, now: now}
}

// Now returns the limiter's clock reading. The atomic insert uses the same
// clock so both checks agree on the window start.
func (rl *RateLimiter) Now() time.Time {
	return rl.now()
}

// WindowStart returns the exclusive lower bound of the window ending at now.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

// AllowCreate counts socialID's records with createdAt > now-window and allows
// the create iff the count is below maxCount.
func (rl *RateLimiter) AllowCreate(ctx context.Context, socialID types.SocialID, window time.Duration, maxCount int) (*Decision, error) {
	if window <= 0 || maxCount <= 0 {
		return nil, fmt.Errorf("invalid admission policy: window=%s max=%d", window, maxCount)
	}

	now := rl.now()
	count, oldest, err := rl.counter.CountCreatedSince(ctx, socialID, WindowStart(now, window))
	if err != nil {
		return nil, fmt.Errorf("count recent creations: %w", err)
	}

	decision := &Decision{
		Allowed: count < maxCount,
		Count:   count,
		Limit:   maxCount,
	}

	if !decision.Allowed && !oldest.IsZero() {
		decision.ResetAt = oldest.Add(window)
		if wait := decision.ResetAt.Sub(now); wait > 0 {
			decision.RetryAfter = wait
		}
	}

	return decision, nil
}

// RetryAfterSeconds rounds the wait up to whole seconds, minimum 1.
func (d *Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
