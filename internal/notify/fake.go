package notify

import (
	"context"
	"sync"
)

// Message is one delivered notification.
type Message struct {
	Text      string
	Recipient string
}

// FakeNotifier records notifications for test assertions.
// Safe for concurrent use.
type FakeNotifier struct {
	mu sync.Mutex

	// Messages contains every successfully delivered notification.
	Messages []Message

	// Attempts counts calls to Notify, including failed ones.
	Attempts int

	// NotifyError, if set, is returned by Notify.
	NotifyError error
}

// NewFakeNotifier creates an empty FakeNotifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

// Notify records the message unless NotifyError is set.
func (f *FakeNotifier) Notify(_ context.Context, message, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Attempts++
	if f.NotifyError != nil {
		return f.NotifyError
	}
	f.Messages = append(f.Messages, Message{Text: message, Recipient: recipient})
	return nil
}

// Texts returns the delivered message texts in order.
func (f *FakeNotifier) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.Messages))
	for i, m := range f.Messages {
		out[i] = m.Text
	}
	return out
}
