// Package gpio provides door switch reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// ErrSensorUnavailable wraps every read failure. Callers treat it as
// transient: log, skip the tick and retry on the next one.
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Reader reads the door switch.
type Reader interface {
	// Read returns true when the door is open.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi with the reed switch on board pin 38.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 20 // BCM 20 = board pin 38
)

// StateString returns the display form of a door state.
func StateString(open bool) string {
	if open {
		return "OPEN"
	}
	return "CLOSED"
}
