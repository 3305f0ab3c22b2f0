// Package network owns the wireless link. It associates through a
// configurable command (nmcli by default) and reads the assigned address
// straight off the interface.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os/exec"
	"strings"
	"sync"
	"time"

	"doorsync/logger"
)

// State is the connectivity state of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config holds wireless settings.
type Config struct {
	Interface        string        `yaml:"interface"`
	SSID             string        `yaml:"ssid"`
	Password         string        `yaml:"password"`
	ConnectCmd       []string      `yaml:"connect_cmd"`
	DisconnectCmd    []string      `yaml:"disconnect_cmd"`
	AssociateTimeout time.Duration `yaml:"associate_timeout"`
}

var (
	defaultConnectCmd    = []string{"nmcli", "device", "wifi", "connect", "{ssid}", "password", "{password}", "ifname", "{iface}"}
	defaultDisconnectCmd = []string{"nmcli", "device", "disconnect", "{iface}"}
)

// AssociationError means the link could not be brought up at all.
type AssociationError struct {
	SSID string
	Err  error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("associate with %q: %v", e.SSID, e.Err)
}

func (e *AssociationError) Unwrap() error { return e.Err }

var errNoAddress = errors.New("no address assigned")

// Session maintains one wireless association.
type Session struct {
	cfg   Config
	log   *logger.Logger
	run   func(ctx context.Context, argv []string) error
	addrs func(iface string) ([]net.Addr, error)
	poll  time.Duration

	mu    sync.Mutex
	state State
}

// New creates a Session. Nothing is touched until Connect.
func New(cfg Config, log *logger.Logger) *Session {
	if cfg.Interface == "" {
		cfg.Interface = "wlan0"
	}
	if len(cfg.ConnectCmd) == 0 {
		cfg.ConnectCmd = defaultConnectCmd
	}
	if len(cfg.DisconnectCmd) == 0 {
		cfg.DisconnectCmd = defaultDisconnectCmd
	}
	if cfg.AssociateTimeout <= 0 {
		cfg.AssociateTimeout = 30 * time.Second
	}
	return &Session{
		cfg:   cfg,
		log:   log,
		run:   runCommand,
		addrs: interfaceAddrs,
		poll:  500 * time.Millisecond,
	}
}

// Connect associates and waits for an address. Failures are returned as
// *AssociationError.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(Connecting)
	s.log.Infow("Connecting", "ssid", s.cfg.SSID, "iface", s.cfg.Interface)

	if err := s.run(ctx, s.expand(s.cfg.ConnectCmd)); err != nil {
		s.setState(Disconnected)
		return &AssociationError{SSID: s.cfg.SSID, Err: err}
	}

	addr, err := s.waitAddress(ctx)
	if err != nil {
		s.setState(Disconnected)
		return &AssociationError{SSID: s.cfg.SSID, Err: err}
	}

	s.setState(Connected)
	s.log.Infow("Connected", "addr", addr)
	return nil
}

// Reconnect drops the association and connects again. It does not retry;
// on failure the session is left Disconnected.
func (s *Session) Reconnect(ctx context.Context) error {
	s.log.Infow("Reconnecting", "iface", s.cfg.Interface)
	if err := s.run(ctx, s.expand(s.cfg.DisconnectCmd)); err != nil {
		// Already down is fine; carry on to connect.
		s.log.Warnw("Disconnect failed", "err", err)
	}
	s.setState(Disconnected)

	if err := s.Connect(ctx); err != nil {
		s.log.Errorw("Reconnect failed", "err", err)
		return err
	}
	return nil
}

// State returns the last state set by Connect or Reconnect.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the session is up and holds an address.
func (s *Session) IsConnected() bool {
	return s.State() == Connected && s.Address().IsValid()
}

// Address returns the interface's first global unicast address, or the
// zero Addr when none is assigned.
func (s *Session) Address() netip.Addr {
	addrs, err := s.addrs(s.cfg.Interface)
	if err != nil {
		return netip.Addr{}
	}
	return pickAddress(addrs)
}

func (s *Session) waitAddress(ctx context.Context) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AssociateTimeout)
	defer cancel()

	t := time.NewTicker(s.poll)
	defer t.Stop()
	for {
		if a := s.Address(); a.IsValid() {
			return a, nil
		}
		select {
		case <-ctx.Done():
			return netip.Addr{}, fmt.Errorf("%w after %s", errNoAddress, s.cfg.AssociateTimeout)
		case <-t.C:
		}
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) expand(argv []string) []string {
	r := strings.NewReplacer("{ssid}", s.cfg.SSID, "{password}", s.cfg.Password, "{iface}", s.cfg.Interface)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

func pickAddress(addrs []net.Addr) netip.Addr {
	var fallback netip.Addr
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipn.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if !ip.IsGlobalUnicast() {
			continue
		}
		if ip.Is4() {
			return ip
		}
		if !fallback.IsValid() {
			fallback = ip
		}
	}
	return fallback
}

func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

func interfaceAddrs(name string) ([]net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}
