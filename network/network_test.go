package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doorsync/logger"
)

type fakeLink struct {
	cmds    [][]string
	failCmd string
	addrs   []net.Addr
}

func (f *fakeLink) run(_ context.Context, argv []string) error {
	f.cmds = append(f.cmds, argv)
	if f.failCmd != "" && argv[len(argv)-1] == f.failCmd {
		return errors.New("driver error")
	}
	return nil
}

func (f *fakeLink) list(string) ([]net.Addr, error) {
	return f.addrs, nil
}

func ipnet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func newTestSession(f *fakeLink) *Session {
	s := New(Config{SSID: "shed", Password: "pw", AssociateTimeout: 20 * time.Millisecond}, logger.Nop())
	s.run = f.run
	s.addrs = f.list
	s.poll = time.Millisecond
	return s
}

func TestConnect(t *testing.T) {
	f := &fakeLink{addrs: []net.Addr{ipnet("192.168.1.20")}}
	s := newTestSession(f)

	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, Connected, s.State())
	assert.True(t, s.IsConnected())
	assert.Equal(t, "192.168.1.20", s.Address().String())
	assert.Equal(t, [][]string{{"nmcli", "device", "wifi", "connect", "shed", "password", "pw", "ifname", "wlan0"}}, f.cmds)
}

func TestConnectDriverFailure(t *testing.T) {
	f := &fakeLink{failCmd: "wlan0"}
	s := newTestSession(f)

	err := s.Connect(context.Background())

	var ae *AssociationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "shed", ae.SSID)
	assert.Equal(t, Disconnected, s.State())
}

func TestConnectNoAddress(t *testing.T) {
	f := &fakeLink{}
	s := newTestSession(f)

	err := s.Connect(context.Background())

	assert.ErrorIs(t, err, errNoAddress)
	assert.False(t, s.IsConnected())
}

func TestMissingAddressCountsAsDisconnected(t *testing.T) {
	f := &fakeLink{addrs: []net.Addr{ipnet("10.0.0.5")}}
	s := newTestSession(f)
	require.NoError(t, s.Connect(context.Background()))

	f.addrs = nil
	assert.False(t, s.IsConnected())
	assert.False(t, s.Address().IsValid())
}

func TestReconnect(t *testing.T) {
	f := &fakeLink{addrs: []net.Addr{ipnet("10.0.0.5")}}
	s := newTestSession(f)

	require.NoError(t, s.Reconnect(context.Background()))
	require.Len(t, f.cmds, 2)
	assert.Equal(t, []string{"nmcli", "device", "disconnect", "wlan0"}, f.cmds[0])
	assert.Equal(t, Connected, s.State())
}

func TestReconnectFailureLeavesDisconnected(t *testing.T) {
	f := &fakeLink{}
	s := newTestSession(f)

	require.Error(t, s.Reconnect(context.Background()))
	assert.Equal(t, Disconnected, s.State())
	assert.Len(t, f.cmds, 2, "no internal retry")
}

func TestPickAddress(t *testing.T) {
	assert.False(t, pickAddress(nil).IsValid())
	assert.False(t, pickAddress([]net.Addr{ipnet("127.0.0.1"), ipnet("169.254.3.3")}).IsValid())

	got := pickAddress([]net.Addr{ipnet("fe80::1"), ipnet("2001:db8::5"), ipnet("192.168.0.9")})
	assert.Equal(t, "192.168.0.9", got.String())

	got = pickAddress([]net.Addr{ipnet("2001:db8::5")})
	assert.Equal(t, "2001:db8::5", got.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "disconnected", Disconnected.String())
}
