// Package config provides configuration parsing and validation for socks5d.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/postalsys/socks5d/internal/socks5"
)

// Config is the top-level YAML configuration for the socks5d daemon.
type Config struct {
	Listen  string        `yaml:"listen"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	SOCKS5  SOCKS5Config  `yaml:"socks5"`
}

// LoggingConfig controls internal/logging.NewLogger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls whether a Prometheus exporter is started.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SOCKS5Config maps directly onto socks5.Config, using YAML-friendly
// field names and durations expressed in seconds per the spec's
// configuration surface.
type SOCKS5Config struct {
	RequestTimeoutSecs uint64     `yaml:"request_timeout_secs"`
	IdleTimeoutSecs    uint64     `yaml:"idle_timeout_secs"`
	SkipAuth           bool       `yaml:"skip_auth"`
	DNSResolve         *bool      `yaml:"dns_resolve"`
	ExecuteCommand     *bool      `yaml:"execute_command"`
	Auth               AuthConfig `yaml:"auth"`
}

// AuthConfig selects and configures an Authenticator.
type AuthConfig struct {
	// Mode is one of "none" (default), "static", or "bcrypt".
	Mode  string            `yaml:"mode"`
	Users map[string]string `yaml:"users"`
}

// Default returns the daemon defaults: listen on 127.0.0.1:1080, info-level
// text logging, metrics disabled, and socks5.DefaultConfig()'s values.
func Default() Config {
	return Config{
		Listen:  "127.0.0.1:1080",
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: false, Listen: "127.0.0.1:9090"},
		SOCKS5: SOCKS5Config{
			RequestTimeoutSecs: 10,
			SkipAuth:           false,
			Auth:               AuthConfig{Mode: "none"},
		},
	}
}

// Load reads and validates the YAML configuration file at path.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: 'listen' is required")
	}
	switch c.SOCKS5.Auth.Mode {
	case "", "none":
	case "static", "bcrypt":
		if len(c.SOCKS5.Auth.Users) == 0 {
			return fmt.Errorf("config: socks5.auth.users must be non-empty for mode %q", c.SOCKS5.Auth.Mode)
		}
	default:
		return fmt.Errorf("config: socks5.auth.mode %q is not one of none, static, bcrypt", c.SOCKS5.Auth.Mode)
	}
	return nil
}

// boolOr dereferences a *bool default, returning def when p is nil. Used
// so "unset" in YAML means "use the spec default" rather than "false",
// for the two flags whose spec default is true.
func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ToEngineConfig builds a socks5.Config from the loaded YAML, resolving
// the authenticator named by SOCKS5Config.Auth.
func (c Config) ToEngineConfig() (socks5.Config, error) {
	engine := socks5.DefaultConfig()
	engine.RequestTimeout = time.Duration(c.SOCKS5.RequestTimeoutSecs) * time.Second
	engine.IdleTimeout = time.Duration(c.SOCKS5.IdleTimeoutSecs) * time.Second
	engine.SkipAuth = c.SOCKS5.SkipAuth
	engine.DNSResolve = boolOr(c.SOCKS5.DNSResolve, true)
	engine.ExecuteCommand = boolOr(c.SOCKS5.ExecuteCommand, true)

	auth, err := buildAuthenticator(c.SOCKS5.Auth)
	if err != nil {
		return socks5.Config{}, err
	}
	engine.Authenticator = auth

	return engine, nil
}

func buildAuthenticator(cfg AuthConfig) (socks5.Authenticator, error) {
	switch cfg.Mode {
	case "", "none":
		return nil, nil
	case "static":
		return socks5.StaticCredentials(cfg.Users), nil
	case "bcrypt":
		return socks5.HashedCredentials(cfg.Users), nil
	default:
		return nil, fmt.Errorf("config: unknown auth mode %q", cfg.Mode)
	}
}
