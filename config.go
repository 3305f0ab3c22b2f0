package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v2"

	"doorsync/control"
	"doorsync/door"
	"doorsync/indicator"
	"doorsync/mqtt"
	"doorsync/network"
	"doorsync/remote"
)

// AccessKeyEnv, when set, overrides remote.access_key from the file.
const AccessKeyEnv = "DOORSYNC_ACCESS_KEY"

// Config is the main configuration structure for doorsync.
type Config struct {
	// Wireless association
	Network network.Config `yaml:"network"`

	// Command record endpoints and credential
	Remote remote.Config `yaml:"remote"`

	// Door leads
	Door door.Config `yaml:"door"`

	// Diagnostic LED / neopixel
	Indicator indicator.Config `yaml:"indicator"`

	// Poll period, reconnect window, report retry
	Control control.Config `yaml:"control"`

	// Optional status broker
	MQTT mqtt.Config `yaml:"mqtt"`

	// General settings
	ClientID string `yaml:"client_id"`
	LogLevel string `yaml:"log_level"`
	PingSecs int    `yaml:"ping_secs"`
}

// LoadConfig reads and validates the config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if key := os.Getenv(AccessKeyEnv); key != "" {
		cfg.Remote.AccessKey = key
	}
	if cfg.PingSecs <= 0 {
		cfg.PingSecs = 120
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the control loop cannot run without.
// It does not mutate the config.
func (c *Config) Validate() error {
	var errs []error

	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id missing"))
	}
	if c.Network.SSID == "" {
		errs = append(errs, errors.New("network.ssid missing"))
	}
	if c.Remote.AccessKey == "" {
		errs = append(errs, fmt.Errorf("remote.access_key missing (or set %s)", AccessKeyEnv))
	}
	if err := checkURL("remote.get_url", c.Remote.GetURL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("remote.put_url", c.Remote.PutURL); err != nil {
		errs = append(errs, err)
	}

	if c.Control.Period < 0 {
		errs = append(errs, errors.New("control.period must not be negative"))
	}
	if c.Control.ReconnectTicks < 0 {
		errs = append(errs, errors.New("control.reconnect_ticks must not be negative"))
	}

	errs = append(errs, checkPin("door.up_pin", c.Door.Type, c.Door.UpPin))
	errs = append(errs, checkPin("door.down_pin", c.Door.Type, c.Door.DownPin))
	errs = append(errs, checkPin("indicator.pin", c.Indicator.Type, c.Indicator.Pin))

	up, down := c.Door.UpPin, c.Door.DownPin
	switch {
	case (up == nil) != (down == nil):
		errs = append(errs, errors.New("door: up_pin and down_pin must both be set"))
	case up != nil && *up == *down:
		errs = append(errs, fmt.Errorf("door: up_pin and down_pin are both %d", *up))
	}
	if c.Indicator.Pin != nil && up != nil && c.Indicator.Type == c.Door.Type &&
		(*c.Indicator.Pin == *up || *c.Indicator.Pin == *down) {
		errs = append(errs, fmt.Errorf("indicator.pin %d is a door lead", *c.Indicator.Pin))
	}

	return errors.Join(errs...)
}

// checkPin rejects numbers the pin drivers would silently truncate:
// negative offsets for any type, and BCM numbers past a byte for gpio.
func checkPin(name, typ string, n *int) error {
	switch {
	case n == nil:
		return nil
	case *n < 0:
		return fmt.Errorf("%s %d must not be negative", name, *n)
	case typ == "gpio" && *n > 255:
		return fmt.Errorf("%s %d out of range for gpio (0-255)", name, *n)
	}
	return nil
}

func checkURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s missing", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute http(s) URL", name, raw)
	}
	return nil
}
