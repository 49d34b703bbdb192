package store

import (
	"context"
	"sync"
	"time"
)

// Entry is one recorded event.
type Entry struct {
	Kind  Kind
	At    time.Time
	Value string
}

// FakeStore records events in memory for test assertions.
// Safe for concurrent use.
type FakeStore struct {
	mu sync.Mutex

	// Entries contains every successfully recorded event.
	Entries []Entry

	// RecordError, if set, is returned by Record for the kinds in FailKinds
	// (or every kind when FailKinds is empty).
	RecordError error
	FailKinds   []Kind

	// SummaryResult and SummaryError are returned by Summary.
	SummaryResult Summary
	SummaryError  error

	Closed bool
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// Record stores the event unless configured to fail.
func (f *FakeStore) Record(_ context.Context, kind Kind, at time.Time, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RecordError != nil && f.fails(kind) {
		return f.RecordError
	}
	f.Entries = append(f.Entries, Entry{Kind: kind, At: at, Value: value})
	return nil
}

func (f *FakeStore) fails(kind Kind) bool {
	if len(f.FailKinds) == 0 {
		return true
	}
	for _, k := range f.FailKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Summary returns the scripted summary.
func (f *FakeStore) Summary(_ context.Context, _ time.Time, _ time.Duration) (Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SummaryResult, f.SummaryError
}

// Close marks the store as closed.
func (f *FakeStore) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Kinds returns the recorded kinds in order.
func (f *FakeStore) Kinds() []Kind {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Kind, len(f.Entries))
	for i, e := range f.Entries {
		out[i] = e.Kind
	}
	return out
}

// Count returns how many events of kind were recorded.
func (f *FakeStore) Count(kind Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, e := range f.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
