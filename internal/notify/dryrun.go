package notify

import (
	"context"

	"go.uber.org/zap"
)

// DryRun logs messages instead of sending them.
type DryRun struct {
	log *zap.SugaredLogger
}

// NewDryRun creates a DryRun notifier.
func NewDryRun(log *zap.SugaredLogger) *DryRun {
	return &DryRun{log: log}
}

// Notify logs the message that would have been sent.
func (d *DryRun) Notify(_ context.Context, message, recipient string) error {
	d.log.Infow("dry run: would send sms", "recipient", recipient, "message", message)
	return nil
}
