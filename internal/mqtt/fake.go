package mqtt

import (
	"github.com/sweeney/garage-sensor/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Transitions contains all door transitions that were published.
	Transitions []logic.Transition

	// Alerts contains all alerts that were published.
	Alerts []Alert

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Payloads contains every JSON payload that was published, in order.
	Payloads [][]byte

	// PublishError, if set, will be returned by PublishTransition and PublishAlert.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishTransition records the transition.
func (f *FakePublisher) PublishTransition(t logic.Transition) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatTransition(t)
	if err != nil {
		return err
	}
	f.Transitions = append(f.Transitions, t)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishAlert records the alert.
func (f *FakePublisher) PublishAlert(a Alert) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatAlert(a)
	if err != nil {
		return err
	}
	f.Alerts = append(f.Alerts, a)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// SystemEventNames returns the Event field of every system event in order.
func (f *FakePublisher) SystemEventNames() []string {
	out := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		out[i] = e.Event
	}
	return out
}
