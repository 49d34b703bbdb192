package mqtt

import "github.com/sweeney/garage-sensor/internal/logic"

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishTransition(logic.Transition) error { return nil }
func (NopPublisher) PublishAlert(Alert) error                 { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error          { return nil }
func (NopPublisher) Close() error                             { return nil }
