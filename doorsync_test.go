package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorsync/command"
	"doorsync/control"
	"doorsync/indicator"
	"doorsync/logger"
	"doorsync/mqtt"
)

type offlineSession struct {
	polls atomic.Int32
}

func (s *offlineSession) IsConnected() bool {
	s.polls.Add(1)
	return false
}

func (s *offlineSession) Reconnect(context.Context) error { return nil }

type nopClient struct{}

func (nopClient) Fetch(context.Context) (command.Record, error) { return command.Record{}, nil }
func (nopClient) Push(context.Context, command.Record) error    { return nil }

type nopDoor struct{}

func (nopDoor) MoveDoor(context.Context, command.Direction, time.Duration) error { return nil }

func TestHalt(t *testing.T) {
	cause := errors.New("no such device")
	h := &Halt{Stage: "door", Err: cause}

	assert.Equal(t, "halt at door: no such device", h.Error())
	assert.ErrorIs(t, h, cause)
}

func TestStartHaltsOnBadConfig(t *testing.T) {
	app := &App{}
	h := app.start(context.Background(), filepath.Join(t.TempDir(), "missing.cfg"))

	require.NotNil(t, h)
	assert.Equal(t, "config", h.Stage)
	assert.NotNil(t, app.log)
	assert.Nil(t, app.loop)
}

func TestPollMessageKicksLoop(t *testing.T) {
	session := &offlineSession{}
	loop, err := control.New(control.Config{Period: time.Hour}, control.Deps{
		Session: session,
		Client:  nopClient{},
		Door:    nopDoor{},
	}, logger.Nop())
	require.NoError(t, err)

	app := &App{cfg: &Config{ClientID: "garage1"}, log: logger.Nop(), loop: loop}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	app.onMQTTMessage("doorsync/control/node/other/poll", nil)
	app.onMQTTMessage(mqtt.ControlTopic("garage1", "poll"), nil)

	// the kick wakes Run long before the hour-long period
	require.Eventually(t, func() bool { return session.polls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStatusPublisherDisabledMQTT(t *testing.T) {
	c, err := mqtt.New(mqtt.Config{}, "garage1", mqtt.Handlers{}, logger.Nop())
	require.NoError(t, err)

	s := &statusPublisher{mqtt: c}
	s.Signal(context.Background(), indicator.Reported)
	assert.NoError(t, s.Release())
}

func TestBrokerDropsCountedUntilReconnect(t *testing.T) {
	c, err := mqtt.New(mqtt.Config{}, "garage1", mqtt.Handlers{}, logger.Nop())
	require.NoError(t, err)
	app := &App{cfg: &Config{ClientID: "garage1"}, log: logger.Nop(), mqtt: c}

	app.onMQTTDisconnect(errors.New("EOF"))
	app.onMQTTDisconnect(errors.New("EOF"))
	assert.Equal(t, int32(2), app.brokerDrops.Load())

	app.onMQTTConnect()
	assert.Zero(t, app.brokerDrops.Load())
}
