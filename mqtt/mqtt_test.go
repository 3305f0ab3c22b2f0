package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorsync/logger"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "doorsync/status/node/gate1/event", StatusTopic("gate1", "event"))
	assert.Equal(t, "doorsync/control/node/gate1/poll", ControlTopic("gate1", "poll"))
}

func TestDisabledClientIsInert(t *testing.T) {
	c, err := New(Config{}, "gate1", Handlers{}, logger.Nop())
	require.NoError(t, err)

	assert.False(t, c.IsEnabled())
	assert.Equal(t, "gate1", c.ClientID())
	assert.NoError(t, c.Connect())
	assert.NoError(t, c.Subscribe(ControlTopic("gate1", "poll")))
	c.Publish(StatusTopic("gate1", "ping"), `{"status":"ok"}`)
	c.Disconnect()
}

func TestNewBadCACert(t *testing.T) {
	_, err := New(Config{Host: "broker", CACert: "/nonexistent/ca.pem"}, "gate1", Handlers{}, logger.Nop())
	assert.Error(t, err)
}

func TestNewPlainTCP(t *testing.T) {
	c, err := New(Config{Host: "127.0.0.1"}, "gate1", Handlers{}, logger.Nop())
	require.NoError(t, err)
	assert.True(t, c.IsEnabled())
	// not connected yet, so Publish is dropped rather than queued
	c.Publish(StatusTopic("gate1", "ping"), `{"status":"ok"}`)
}

func TestConnectionLostCallsHandler(t *testing.T) {
	var got error
	c, err := New(Config{}, "gate1", Handlers{
		OnDisconnect: func(err error) { got = err },
	}, logger.Nop())
	require.NoError(t, err)

	lost := errors.New("pingresp not received")
	c.handleConnectionLost(nil, lost)
	assert.ErrorIs(t, got, lost)
}
