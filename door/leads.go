package door

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doorsync/command"
	"doorsync/pin"
)

// ErrActuation is wrapped by every MoveDoor failure caused by a lead write.
var ErrActuation = errors.New("actuation failure")

// Leads implements Mover with two mutually exclusive outputs.
type Leads struct {
	up      pin.Output
	down    pin.Output
	release func() error
	wait    func(ctx context.Context, d time.Duration)
}

// NewLeads creates a Mover over the up and down outputs. release, if not
// nil, is called by Release after both leads are driven low.
func NewLeads(up, down pin.Output, release func() error) *Leads {
	return &Leads{
		up:      up,
		down:    down,
		release: release,
		wait:    sleep,
	}
}

// MoveDoor implements Mover.MoveDoor. A cancelled ctx cuts the wait short
// but never skips the final de-energize of both leads.
func (l *Leads) MoveDoor(ctx context.Context, dir command.Direction, d time.Duration) error {
	on, off := l.up, l.down
	if dir == command.Down {
		on, off = l.down, l.up
	}

	err := off.Set(false)
	if err == nil {
		err = on.Set(true)
		if err == nil {
			l.wait(ctx, d)
		}
	}

	if cerr := l.allOff(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("move door %s: %w: %w", dir, ErrActuation, err)
	}
	return nil
}

// Release implements Mover.Release.
func (l *Leads) Release() error {
	err := l.allOff()
	if l.release != nil {
		if rerr := l.release(); rerr != nil {
			err = rerr
		}
	}
	return err
}

// allOff attempts both writes even when the first fails.
func (l *Leads) allOff() error {
	errUp := l.up.Set(false)
	errDown := l.down.Set(false)
	return errors.Join(errUp, errDown)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
