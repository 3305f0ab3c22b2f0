package door

import (
	"context"
	"fmt"
	"time"

	"github.com/hjkoskel/govattu"

	"doorsync/command"
	"doorsync/pin"
)

// Mover is the interface for door actuator implementations.
type Mover interface {
	// MoveDoor energizes the lead for dir for at most d, then de-energizes
	// both leads.
	MoveDoor(ctx context.Context, dir command.Direction, d time.Duration) error

	// Release drives both leads low and releases any hardware resources.
	Release() error
}

// Config holds configuration for the door actuator.
type Config struct {
	Type      string `yaml:"type"`       // "gpio", "cdev", "none"
	Chip      string `yaml:"chip"`       // cdev only, default gpiochip0
	UpPin     *int   `yaml:"up_pin"`     // BCM number or line offset
	DownPin   *int   `yaml:"down_pin"`   // BCM number or line offset
	ActiveLow bool   `yaml:"active_low"` // relay boards that close on low
}

// New creates a Mover based on the provided configuration.
func New(cfg Config) (Mover, error) {
	if cfg.UpPin == nil || cfg.DownPin == nil {
		return NewLeads(pin.Nop{}, pin.Nop{}, nil), nil
	}

	switch cfg.Type {
	case "gpio":
		hw, err := govattu.Open()
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		up := pin.NewVattu(hw, uint8(*cfg.UpPin), cfg.ActiveLow)
		down := pin.NewVattu(hw, uint8(*cfg.DownPin), cfg.ActiveLow)
		return NewLeads(up, down, hw.Close), nil

	case "cdev":
		up, err := pin.RequestLine(cfg.Chip, *cfg.UpPin, cfg.ActiveLow)
		if err != nil {
			return nil, err
		}
		down, err := pin.RequestLine(cfg.Chip, *cfg.DownPin, cfg.ActiveLow)
		if err != nil {
			up.Close()
			return nil, err
		}
		return NewLeads(up, down, func() error {
			err := up.Close()
			if derr := down.Close(); derr != nil {
				err = derr
			}
			return err
		}), nil

	case "none", "":
		return NewLeads(pin.Nop{}, pin.Nop{}, nil), nil

	default:
		return nil, fmt.Errorf("unknown door type %q", cfg.Type)
	}
}
