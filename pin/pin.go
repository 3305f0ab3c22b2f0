// Package pin wraps the two GPIO access paths used on the board behind one
// tiny output interface, so the door and the status LED don't care which
// one is configured.
package pin

import (
	"fmt"

	"github.com/hjkoskel/govattu"
	"github.com/warthog618/go-gpiocdev"
)

// Output is a single digital output line.
type Output interface {
	// Set drives the line to its active (true) or inactive (false) level.
	Set(active bool) error
}

// Vattu drives a BCM pin through govattu's memory-mapped registers.
type Vattu struct {
	hw        govattu.Vattu
	pin       uint8
	activeLow bool
}

// NewVattu configures pin as an output and leaves it inactive.
func NewVattu(hw govattu.Vattu, pin uint8, activeLow bool) *Vattu {
	hw.PinMode(pin, govattu.ALToutput)
	v := &Vattu{hw: hw, pin: pin, activeLow: activeLow}
	v.Set(false)
	return v
}

// Set implements Output.Set. Register writes cannot fail.
func (v *Vattu) Set(active bool) error {
	if active != v.activeLow {
		v.hw.PinSet(v.pin)
	} else {
		v.hw.PinClear(v.pin)
	}
	return nil
}

// Line drives a GPIO character-device line.
type Line struct {
	line *gpiocdev.Line
}

// RequestLine requests offset on chip as an output, initially inactive.
func RequestLine(chip string, offset int, activeLow bool) (*Line, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("doorsync")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request %s line %d: %w", chip, offset, err)
	}
	return &Line{line: l}, nil
}

// Set implements Output.Set.
func (l *Line) Set(active bool) error {
	v := 0
	if active {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set line %d: %w", l.line.Offset(), err)
	}
	return nil
}

// Close releases the line.
func (l *Line) Close() error {
	return l.line.Close()
}

// Nop is an Output that goes nowhere, for boards without the line wired.
type Nop struct{}

// Set implements Output.Set.
func (Nop) Set(bool) error { return nil }
