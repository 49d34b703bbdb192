package logic

import "time"

// Engine evaluates the configured alarm rules in configuration order.
type Engine struct {
	rules []*Rule
}

// NewEngine creates an engine over the given rules. The engine owns them;
// callers must not tick the rules directly.
func NewEngine(rules ...*Rule) *Engine {
	return &Engine{rules: rules}
}

// Tick runs every rule against the confirmed door state and returns all
// alerts fired this tick, in rule order. It does not short-circuit.
func (e *Engine) Tick(now time.Time, open bool) []AlertEvent {
	var events []AlertEvent
	for _, r := range e.rules {
		if ev := r.Tick(now, open); ev != nil {
			events = append(events, *ev)
		}
	}
	return events
}

// Status returns the status of every rule in order.
func (e *Engine) Status() []RuleStatus {
	out := make([]RuleStatus, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Status()
	}
	return out
}

// Len returns the number of configured rules.
func (e *Engine) Len() int {
	return len(e.rules)
}
