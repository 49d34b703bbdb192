//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the door switch from hardware using the Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealReader requests the given line as an input with pull-down.
// The switch is normally open: raw high = door open, unless activeLow is set.
func NewRealReader(chipName string, pin int, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request door pin %d: %w", pin, err)
	}

	return &RealReader{
		chip:      chip,
		line:      line,
		activeLow: activeLow,
	}, nil
}

// Read returns true when the door is open.
func (r *RealReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("%w: read door pin: %v", ErrSensorUnavailable, err)
	}

	open := raw == 1
	if r.activeLow {
		open = !open
	}
	return open, nil
}

// Close releases GPIO resources, leaving the pin as an input with pull-down
// to match Pi boot defaults.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure door pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close door pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
