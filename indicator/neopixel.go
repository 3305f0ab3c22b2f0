package indicator

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoNormalIdle     = "@3 !150000 400000"
	neoActive         = "@1 !50000 8000"
	neoFault          = "@2 !10000 ff"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
// The strip keeps animating on its own, so Signal never blocks.
type Neopixel struct {
	pipe io.WriteCloser
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{pipe: f}, nil
}

// Signal implements Indicator.Signal.
func (n *Neopixel) Signal(_ context.Context, ev Event) {
	n.write(neopixelFor(ev))
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	n.write(neoTerminated)
	return n.pipe.Close()
}

func neopixelFor(ev Event) string {
	switch ev {
	case Idle, Reported:
		return neoNormalIdle
	case Executing, Retry:
		return neoActive
	case Booting, Connecting, Waiting, Reconnecting:
		return neoConnectionLost
	default:
		return neoFault
	}
}

func (n *Neopixel) write(s string) {
	if n.pipe != nil {
		n.pipe.Write([]byte(s))
	}
}
