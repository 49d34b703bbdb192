package logic

import "time"

// Phase is the timing state of an alarm rule.
type Phase string

const (
	// PhaseIdle: the alarm condition is not live. No timers are held.
	PhaseIdle Phase = "IDLE"
	// PhaseArmed: an episode is running and a notification was just sent;
	// the counter restarts on the next live tick.
	PhaseArmed Phase = "ARMED"
	// PhaseCounting: an episode is running and the counter is accumulating.
	PhaseCounting Phase = "COUNTING"
)

// RuleConfig is the static configuration of one alarm.
type RuleConfig struct {
	Name         string
	Target       bool          // door state that is alarm-worthy (true = open)
	TriggerAfter time.Duration // live time before the first notification
	Cooldown     time.Duration // minimum counter time between repeat notifications
	Window       Window
}

// Rule is one configured alarm with its own timing state machine:
//
//	Idle -> Counting -> (fire) -> Armed -> Counting -> ...
//
// Any non-live tick returns the rule to Idle and discards all progress.
type Rule struct {
	cfg RuleConfig

	phase        Phase
	episodeStart time.Time // set in Armed and Counting
	counterStart time.Time // set in Counting
	lastNotified time.Time // zero until the first notification of the episode
}

// RuleStatus is a point-in-time view of a rule for status reporting.
type RuleStatus struct {
	Name         string
	Target       bool
	Window       Window
	TriggerAfter time.Duration
	Cooldown     time.Duration
	Phase        Phase
	EpisodeStart time.Time
	CounterStart time.Time
	LastNotified time.Time
}

// NewRule creates an idle rule.
func NewRule(cfg RuleConfig) *Rule {
	return &Rule{cfg: cfg, phase: PhaseIdle}
}

// Name returns the configured rule name.
func (r *Rule) Name() string {
	return r.cfg.Name
}

// Live reports whether the alarm condition holds at now for the given state.
func (r *Rule) Live(now time.Time, open bool) bool {
	return open == r.cfg.Target && r.cfg.Window.Contains(now)
}

// Tick advances the state machine and returns an alert if the rule fires.
func (r *Rule) Tick(now time.Time, open bool) *AlertEvent {
	if !r.Live(now, open) {
		r.reset()
		return nil
	}

	switch r.phase {
	case PhaseIdle:
		r.episodeStart = now
		r.counterStart = now
		r.phase = PhaseCounting
	case PhaseArmed:
		r.counterStart = now
		r.phase = PhaseCounting
	}

	elapsed := now.Sub(r.counterStart)
	if elapsed < r.cfg.TriggerAfter {
		return nil
	}
	if !r.lastNotified.IsZero() && elapsed < r.cfg.Cooldown {
		return nil
	}

	event := &AlertEvent{
		Rule:         r.cfg.Name,
		Target:       r.cfg.Target,
		Elapsed:      elapsed,
		TotalElapsed: now.Sub(r.episodeStart),
		Timestamp:    now,
	}
	r.lastNotified = now
	r.counterStart = time.Time{}
	r.phase = PhaseArmed
	return event
}

func (r *Rule) reset() {
	r.phase = PhaseIdle
	r.episodeStart = time.Time{}
	r.counterStart = time.Time{}
	r.lastNotified = time.Time{}
}

// Status returns a copy of the rule's configuration and timing state.
func (r *Rule) Status() RuleStatus {
	return RuleStatus{
		Name:         r.cfg.Name,
		Target:       r.cfg.Target,
		Window:       r.cfg.Window,
		TriggerAfter: r.cfg.TriggerAfter,
		Cooldown:     r.cfg.Cooldown,
		Phase:        r.phase,
		EpisodeStart: r.episodeStart,
		CounterStart: r.counterStart,
		LastNotified: r.lastNotified,
	}
}
