// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package config loads Pitchside configuration from defaults, a YAML file,
// PITCHSIDE_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/pitchside/pitchside/internal/logging"
	"github.com/pitchside/pitchside/internal/xdg"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: PITCHSIDE_SESSION__TTL_HOURS sets session.ttl_hours.
const EnvPrefix = "PITCHSIDE_"

// Token locations.
const (
	TokenInCookie = "cookie"
	TokenInHeader = "header"
)

// Default values.
const (
	DefaultAddr            = ":8000"
	DefaultMetricsAddr     = "127.0.0.1:9464"
	DefaultTTLHours        = 24
	DefaultCookieName      = "session_id"
	DefaultSweepInterval   = 10 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogFormat       = "json"
	DefaultLogLevel        = "info"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Session  SessionConfig  `koanf:"session"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// SessionConfig configures session lifetime and token transport.
type SessionConfig struct {
	TTLHours      int           `koanf:"ttl_hours"`
	TokenLocation string        `koanf:"token_location"`
	CookieName    string        `koanf:"cookie_name"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// TTL returns the session lifetime as a duration.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Options converts the log config into logging options.
func (l LogConfig) Options() logging.Options {
	return logging.Options{Format: l.Format, Level: l.Level}
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Session: SessionConfig{
			TTLHours:      DefaultTTLHours,
			TokenLocation: TokenInCookie,
			CookieName:    DefaultCookieName,
			SweepInterval: DefaultSweepInterval,
		},
		Log: LogConfig{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed are
// not configuration (for example --config itself).
var flagKeys = map[string]string{
	"addr":           "server.addr",
	"database-url":   "database.url",
	"auto-migrate":   "database.auto_migrate",
	"session-ttl":    "session.ttl_hours",
	"token-location": "session.token_location",
	"cookie-secure":  "session.cookie_secure",
	"log-format":     "log.format",
	"log-level":      "log.level",
	"metrics-addr":   "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs, with the built-in
// defaults as flag defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "API listen address")
	fs.String("database-url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.Int("session-ttl", d.Session.TTLHours, "session lifetime in hours")
	fs.String("token-location", d.Session.TokenLocation, "where clients present the session token: cookie or header")
	fs.Bool("cookie-secure", false, "mark the session cookie Secure")
	fs.String("log-format", d.Log.Format, "log format: json or text")
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// Load builds the configuration. path names a YAML file; when empty, the XDG
// config file is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path == "" && xdg.Exists(xdg.ConfigFile()) {
		path = xdg.ConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				With("source", "file").
				Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal config").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps PITCHSIDE_SESSION__TTL_HOURS to session.ttl_hours. List values
// are comma separated.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.cors_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "server.addr").Errorf("server address is required")
	}
	if c.Session.TTLHours <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.ttl_hours").
			Errorf("session ttl must be positive, got %d", c.Session.TTLHours)
	}
	if c.Session.TokenLocation != TokenInCookie && c.Session.TokenLocation != TokenInHeader {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.token_location").
			Errorf("token location must be 'cookie' or 'header', got %q", c.Session.TokenLocation)
	}
	if c.Session.CookieName == "" {
		return oops.Code("CONFIG_INVALID").With("key", "session.cookie_name").Errorf("cookie name is required")
	}
	if c.Session.SweepInterval < 0 {
		return oops.Code("CONFIG_INVALID").
			With("key", "session.sweep_interval").
			Errorf("sweep interval cannot be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").
			With("key", "log.level").
			Errorf("log level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
