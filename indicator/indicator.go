package indicator

import (
	"context"
	"fmt"

	"github.com/hjkoskel/govattu"

	"doorsync/pin"
)

// Indicator is the interface for status indicator implementations.
type Indicator interface {
	// Signal shows the event and returns once it has been shown in full.
	Signal(ctx context.Context, ev Event)

	// Release turns the indicator off and releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// Diagnostic LED (nil = not configured)
	Type      string `yaml:"type"` // "gpio" or "cdev"
	Chip      string `yaml:"chip"`
	Pin       *int   `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if both an LED and a Neopixel are configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	if cfg.Pin != nil {
		b, err := newLED(cfg)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, b)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	switch len(indicators) {
	case 0:
		return Noop{}, nil
	case 1:
		return indicators[0], nil
	default:
		return NewMulti(indicators...), nil
	}
}

func newLED(cfg Config) (*Blinker, error) {
	switch cfg.Type {
	case "cdev":
		l, err := pin.RequestLine(cfg.Chip, *cfg.Pin, cfg.ActiveLow)
		if err != nil {
			return nil, err
		}
		return NewBlinker(l, l.Close), nil
	case "gpio", "":
		hw, err := govattu.Open()
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		return NewBlinker(pin.NewVattu(hw, uint8(*cfg.Pin), cfg.ActiveLow), hw.Close), nil
	default:
		return nil, fmt.Errorf("unknown indicator type %q", cfg.Type)
	}
}

// Noop implements Indicator but does nothing.
type Noop struct{}

// Signal implements Indicator.Signal.
func (Noop) Signal(context.Context, Event) {}

// Release implements Indicator.Release.
func (Noop) Release() error { return nil }
