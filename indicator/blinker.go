package indicator

import (
	"context"
	"time"

	"doorsync/pin"
)

// Blinker implements Indicator by playing patterns on one output.
type Blinker struct {
	out     pin.Output
	release func() error
	hold    func(ctx context.Context, d time.Duration)
}

// NewBlinker creates a Blinker on out. release, if not nil, is called by
// Release after the output is turned off.
func NewBlinker(out pin.Output, release func() error) *Blinker {
	return &Blinker{out: out, release: release, hold: hold}
}

// Signal implements Indicator.Signal. A failed write is ignored; the LED
// is diagnostics only.
func (b *Blinker) Signal(ctx context.Context, ev Event) {
	b.Play(ctx, Encode(Pattern(ev)))
}

// Play runs steps to completion, or until ctx is done. The output is
// always left off.
func (b *Blinker) Play(ctx context.Context, steps []Step) {
	defer b.out.Set(false)
	for _, s := range steps {
		if ctx.Err() != nil {
			return
		}
		b.out.Set(s.High)
		b.hold(ctx, s.Duration)
	}
}

// Release implements Indicator.Release.
func (b *Blinker) Release() error {
	b.out.Set(false)
	if b.release != nil {
		return b.release()
	}
	return nil
}

func hold(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
