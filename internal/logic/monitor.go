package logic

import "fmt"

// Monitor detects debounced door transitions over a sliding window of the
// 2N most recent readings, where N is the debounce depth.
//
// A transition is confirmed when the newest N readings all agree, the N
// readings before them all agree, and the two halves differ. A single noisy
// reading therefore never confirms a change.
type Monitor struct {
	depth     int
	history   []Reading // ring buffer of 2*depth readings
	head      int       // index of the newest reading
	confirmed Reading
}

// NewMonitor creates a monitor with the given debounce depth. Both halves of
// the history are pre-filled with the initial reading so the first real
// sample cannot be misread as a transition.
func NewMonitor(depth int, initial Reading) (*Monitor, error) {
	if depth < 1 {
		return nil, fmt.Errorf("debounce depth must be >= 1, got %d", depth)
	}

	history := make([]Reading, 2*depth)
	for i := range history {
		history[i] = initial
	}

	return &Monitor{
		depth:     depth,
		history:   history,
		confirmed: initial,
	}, nil
}

// Sample pushes a new reading, evicting the oldest, and returns the confirmed
// transition if one occurred. The confirmed state only changes on a transition.
func (m *Monitor) Sample(r Reading) *Transition {
	m.head = (m.head + 1) % len(m.history)
	m.history[m.head] = r

	newest := m.at(0).Open
	oldest := m.at(len(m.history) - 1).Open
	if newest == oldest {
		return nil
	}

	if !m.consistent(0, m.depth) || !m.consistent(m.depth, 2*m.depth) {
		return nil
	}

	m.confirmed = r
	return &Transition{
		Timestamp: r.Time,
		From:      oldest,
		To:        newest,
	}
}

// at returns the i-th most recent reading (0 = newest).
func (m *Monitor) at(i int) Reading {
	n := len(m.history)
	return m.history[(m.head-i+n)%n]
}

// consistent reports whether readings [from, to) (newest-first) share one state.
func (m *Monitor) consistent(from, to int) bool {
	first := m.at(from).Open
	for i := from + 1; i < to; i++ {
		if m.at(i).Open != first {
			return false
		}
	}
	return true
}

// Confirmed returns the debounced door state and the time it was confirmed.
func (m *Monitor) Confirmed() Reading {
	return m.confirmed
}

// Depth returns the debounce depth N.
func (m *Monitor) Depth() int {
	return m.depth
}

// History returns a newest-first copy of the sliding window.
func (m *Monitor) History() []Reading {
	out := make([]Reading, len(m.history))
	for i := range out {
		out[i] = m.at(i)
	}
	return out
}
