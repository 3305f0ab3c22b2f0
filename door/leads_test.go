package door

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorsync/command"
)

// board tracks both lead levels and checks they are never both high.
type board struct {
	t      *testing.T
	up     bool
	down   bool
	events []string
}

type lead struct {
	b    *board
	name string
	fail bool
}

func (l *lead) Set(active bool) error {
	if l.fail {
		l.b.events = append(l.b.events, l.name+"!")
		return errors.New("write failed")
	}
	if l.name == "up" {
		l.b.up = active
	} else {
		l.b.down = active
	}
	if l.b.up && l.b.down {
		l.b.t.Fatalf("both leads high")
	}
	state := "low"
	if active {
		state = "high"
	}
	l.b.events = append(l.b.events, l.name+"="+state)
	return nil
}

func newTestLeads(t *testing.T, failUp, failDown bool) (*Leads, *board, *[]time.Duration) {
	b := &board{t: t}
	l := NewLeads(&lead{b: b, name: "up", fail: failUp}, &lead{b: b, name: "down", fail: failDown}, nil)
	var waits []time.Duration
	l.wait = func(_ context.Context, d time.Duration) {
		b.events = append(b.events, "wait")
		waits = append(waits, d)
	}
	return l, b, &waits
}

func TestMoveDoorUp(t *testing.T) {
	l, b, waits := newTestLeads(t, false, false)

	err := l.MoveDoor(context.Background(), command.Up, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, []string{"down=low", "up=high", "wait", "up=low", "down=low"}, b.events)
	assert.Equal(t, []time.Duration{5 * time.Second}, *waits)
	assert.False(t, b.up)
	assert.False(t, b.down)
}

func TestMoveDoorDown(t *testing.T) {
	l, b, _ := newTestLeads(t, false, false)

	require.NoError(t, l.MoveDoor(context.Background(), command.Down, time.Second))
	assert.Equal(t, []string{"up=low", "down=high", "wait", "up=low", "down=low"}, b.events)
}

func TestMoveDoorEveryAmount(t *testing.T) {
	for a := 0; a <= 255; a += 51 {
		l, b, waits := newTestLeads(t, false, false)
		rec := command.Record{Up: 1, Amount: uint8(a)}

		require.NoError(t, l.MoveDoor(context.Background(), rec.Direction(), rec.Duration()))
		assert.Equal(t, []time.Duration{time.Duration(a) * time.Second}, *waits)
		assert.False(t, b.up || b.down)
	}
}

func TestMoveDoorEnergizeFailureStillCleansUp(t *testing.T) {
	l, b, waits := newTestLeads(t, true, false)

	err := l.MoveDoor(context.Background(), command.Up, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrActuation)

	assert.Empty(t, *waits, "must not wait when the lead never went high")
	// cleanup still tries both leads
	assert.Equal(t, []string{"down=low", "up!", "up!", "down=low"}, b.events)
}

func TestMoveDoorCleanupFailureReported(t *testing.T) {
	l, b, _ := newTestLeads(t, false, true)

	err := l.MoveDoor(context.Background(), command.Up, time.Second)
	assert.ErrorIs(t, err, ErrActuation)
	assert.Equal(t, []string{"down!"}, b.events[:1])
	assert.Contains(t, b.events, "up=low")
}

func TestSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleep(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewWithoutPinsIsInert(t *testing.T) {
	m, err := New(Config{Type: "gpio"})
	require.NoError(t, err)
	require.NoError(t, m.MoveDoor(context.Background(), command.Up, 0))
	require.NoError(t, m.Release())
}

func TestNewUnknownType(t *testing.T) {
	up, down := 5, 6
	_, err := New(Config{Type: "servo", UpPin: &up, DownPin: &down})
	assert.Error(t, err)
}
