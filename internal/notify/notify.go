// Package notify delivers short text messages to a recipient.
package notify

import (
	"context"
	"errors"
)

var (
	// ErrNotification wraps every delivery failure. Delivery is at most
	// once: failures are logged and never retried.
	ErrNotification = errors.New("notification failure")

	// ErrThrottled is returned by Throttle when a message is held back.
	ErrThrottled = errors.New("notification throttled")
)

// Notifier sends a message to a recipient.
type Notifier interface {
	Notify(ctx context.Context, message, recipient string) error
}

// Truncate caps message at max runes, keeping the most recent suffix.
// A non-positive max disables the cap.
func Truncate(message string, max int) string {
	if max <= 0 {
		return message
	}
	r := []rune(message)
	if len(r) <= max {
		return message
	}
	return string(r[len(r)-max:])
}
