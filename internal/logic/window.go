package logic

import (
	"fmt"
	"time"
)

// Window is a recurring daily time-of-day interval [Start, End) in hours,
// evaluated in the location of the time passed to Contains.
// When End <= Start the window wraps past midnight: 20→10 covers 20:00
// through 09:59 the next day.
type Window struct {
	Start int
	End   int
}

// Validate checks both bounds are within 0..24.
func (w Window) Validate() error {
	if w.Start < 0 || w.Start > 24 {
		return fmt.Errorf("window start %d out of range 0..24", w.Start)
	}
	if w.End < 0 || w.End > 24 {
		return fmt.Errorf("window end %d out of range 0..24", w.End)
	}
	return nil
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.End <= w.Start
}

// Contains reports whether now falls inside the window. The hour is read
// from now's own wall clock on every call, so no reference date is kept.
func (w Window) Contains(now time.Time) bool {
	hour := now.Hour()
	afterStart := hour >= w.Start
	beforeEnd := hour < w.End

	if w.Wraps() {
		return afterStart || beforeEnd
	}
	return afterStart && beforeEnd
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.Start, w.End)
}
