// Package config loads and validates the session manager's connection
// configuration from a TOML file.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Default timeouts, in seconds, applied when the file leaves them unset.
const (
	DefaultSendTimeoutSeconds    = 5
	DefaultReceiveTimeoutSeconds = 5
)

// Endpoint is a host/port pair. Both fields are optional here; the
// session manager validates them just-in-time for the operation that
// needs them.
type Endpoint struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// IsSet reports whether the endpoint carries a usable address.
func (e Endpoint) IsSet() bool {
	return e.Host != "" && e.Port != 0
}

// Timeouts bound the blocking socket operations.
type Timeouts struct {
	SendSeconds    int `toml:"send_seconds"`
	ReceiveSeconds int `toml:"receive_seconds"`
}

// Config is the connection configuration of one session manager instance.
type Config struct {
	Send     Endpoint `toml:"send"`
	Receive  Endpoint `toml:"receive"`
	Timeouts Timeouts `toml:"timeouts"`
}

// Load reads a Config from the TOML file at path, applies defaults, and
// validates it.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
	}).Debug("Configuration loaded")

	return cfg, nil
}

// ApplyDefaults fills unset timeout fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeouts.SendSeconds == 0 {
		c.Timeouts.SendSeconds = DefaultSendTimeoutSeconds
	}
	if c.Timeouts.ReceiveSeconds == 0 {
		c.Timeouts.ReceiveSeconds = DefaultReceiveTimeoutSeconds
	}
}

// Validate checks field ranges. Presence of hosts and ports is not checked
// here; the session manager enforces that per operation.
func (c Config) Validate() error {
	if c.Send.Port < 0 || c.Send.Port > 65535 {
		return fmt.Errorf("send port %d out of range", c.Send.Port)
	}
	if c.Receive.Port < 0 || c.Receive.Port > 65535 {
		return fmt.Errorf("receive port %d out of range", c.Receive.Port)
	}
	if c.Timeouts.SendSeconds < 0 {
		return fmt.Errorf("send timeout %d cannot be negative", c.Timeouts.SendSeconds)
	}
	if c.Timeouts.ReceiveSeconds < 0 {
		return fmt.Errorf("receive timeout %d cannot be negative", c.Timeouts.ReceiveSeconds)
	}
	return nil
}

// SendTimeout returns the outbound operation timeout as a duration.
func (c Config) SendTimeout() time.Duration {
	return time.Duration(c.Timeouts.SendSeconds) * time.Second
}

// ReceiveTimeout returns the inbound drain timeout as a duration.
func (c Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.Timeouts.ReceiveSeconds) * time.Second
}
