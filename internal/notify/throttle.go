package notify

import (
	"context"
	"sync"
	"time"
)

// Throttle wraps a Notifier and drops messages sent less than interval after
// the previous attempt. Used for escalations (storage outages) that must not
// spam the recipient. Safe for concurrent use.
type Throttle struct {
	next     Notifier
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	lastAttempt time.Time
}

// NewThrottle creates a Throttle. now may be nil to use time.Now.
func NewThrottle(next Notifier, interval time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{next: next, interval: interval, now: now}
}

// Notify forwards the message unless the previous attempt was within the
// interval, in which case it returns ErrThrottled.
func (t *Throttle) Notify(ctx context.Context, message, recipient string) error {
	t.mu.Lock()
	now := t.now()
	if !t.lastAttempt.IsZero() && now.Sub(t.lastAttempt) < t.interval {
		t.mu.Unlock()
		return ErrThrottled
	}
	t.lastAttempt = now
	t.mu.Unlock()

	return t.next.Notify(ctx, message, recipient)
}
