// Package config holds the settings of a weatherbox server.
//
// Values come from Default, then an optional TOML file, then command line
// flags (applied by the caller).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type (
	Config struct {
		Bind      string          `toml:"bind"`
		Database  string          `toml:"database"`
		LogLevel  string          `toml:"log_level"`
		LogFormat string          `toml:"log_format"`
		Auth      AuthConfig      `toml:"auth"`
		Reconcile ReconcileConfig `toml:"reconcile"`
	}

	AuthConfig struct {
		BcryptCost   int      `toml:"bcrypt_cost"`
		SessionTTL   Duration `toml:"session_ttl"`
		CookieName   string   `toml:"cookie_name"`
		SecureCookie bool     `toml:"secure_cookie"`
		// LoginRate is the number of login attempts per second allowed
		// for a single client address
		LoginRate  float64 `toml:"login_rate"`
		LoginBurst int     `toml:"login_burst"`
	}

	ReconcileConfig struct {
		// Interval between sweeps, zero disables the periodic sweep
		Interval Duration `toml:"interval"`
	}

	// Duration reads values like "30m" or "12h"
	Duration struct {
		time.Duration
	}

	ValidationError struct {
		Field   string
		Message string
	}

	ValidationErrors []ValidationError
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", e.Field, e.Message)
}

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

func Default() *Config {
	return &Config{
		Bind:      "localhost:5001",
		Database:  "weatherbox.db",
		LogLevel:  "info",
		LogFormat: "console",
		Auth: AuthConfig{
			BcryptCost: 10,
			SessionTTL: Duration{24 * time.Hour},
			CookieName: "weatherbox_session",
			LoginRate:  0.2,
			LoginBurst: 5,
		},
		Reconcile: ReconcileConfig{
			Interval: Duration{10 * time.Minute},
		},
	}
}

// Load returns the defaults overridden by the file at path, an empty
// path returns only the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config file %v, cause %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in config file %v: %v", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.Bind) == "" {
		errs = append(errs, ValidationError{Field: "bind", Message: "cannot be empty"})
	}
	if strings.TrimSpace(c.Database) == "" {
		errs = append(errs, ValidationError{Field: "database", Message: "cannot be empty"})
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
		errs = append(errs, ValidationError{Field: "auth.bcrypt_cost", Message: fmt.Sprintf("must be between 10 and 31, got %v", c.Auth.BcryptCost)})
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		errs = append(errs, ValidationError{Field: "auth.session_ttl", Message: "must be positive"})
	}
	if strings.TrimSpace(c.Auth.CookieName) == "" {
		errs = append(errs, ValidationError{Field: "auth.cookie_name", Message: "cannot be empty"})
	}
	if c.Auth.LoginRate <= 0 {
		errs = append(errs, ValidationError{Field: "auth.login_rate", Message: "must be positive"})
	}
	if c.Auth.LoginBurst <= 0 {
		errs = append(errs, ValidationError{Field: "auth.login_burst", Message: "must be positive"})
	}
	if c.Reconcile.Interval.Duration < 0 {
		errs = append(errs, ValidationError{Field: "reconcile.interval", Message: "cannot be negative"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
