// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/pubsub"
)

// Default values for configuration keys.
const (
	defaultHTTPAddr        = ":4000"
	defaultMetricsAddr     = "127.0.0.1:9100"
	defaultLogFormat       = "json"
	defaultLogLevel        = "info"
	defaultRedisURL        = "redis://localhost:6379/0"
	defaultTokenTTL        = time.Hour
	defaultPublishTimeout  = pubsub.DefaultPublishTimeout
	defaultShutdownTimeout = 5 * time.Second
)

// envPrefix namespaces the process environment.
const envPrefix = "PARLEY_"

// envAliases are the unprefixed variable names honoured for common deployment
// settings. PARLEY_-prefixed variables take precedence.
var envAliases = map[string]string{
	"DATABASE_URL": "database_url",
	"REDIS_URL":    "redis_url",
	"JWT_SECRET":   "jwt_secret",
}

// Config is the resolved server configuration.
type Config struct {
	HTTPAddr        string        `koanf:"http_addr"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	LogFormat       string        `koanf:"log_format"`
	LogLevel        string        `koanf:"log_level"`
	DatabaseURL     string        `koanf:"database_url"`
	RedisURL        string        `koanf:"redis_url"`
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	PublishTimeout  time.Duration `koanf:"publish_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

func defaults() map[string]any {
	return map[string]any{
		"http_addr":        defaultHTTPAddr,
		"metrics_addr":     defaultMetricsAddr,
		"log_format":       defaultLogFormat,
		"log_level":        defaultLogLevel,
		"redis_url":        defaultRedisURL,
		"token_ttl":        defaultTokenTTL.String(),
		"publish_timeout":  defaultPublishTimeout.String(),
		"shutdown_timeout": defaultShutdownTimeout.String(),
		"auto_migrate":     true,
	}
}

// loadConfig layers defaults, the optional YAML file at path, the
// environment and explicitly set flags, in increasing precedence.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	ko := koanf.New(".")

	if err := ko.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}
	if path != "" {
		if err := ko.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	aliases := env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		return envAliases[key], value
	})
	if err := ko.Load(aliases, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	prefixed := env.Provider(envPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, envPrefix))
	})
	if err := ko.Load(prefixed, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		fp := posflag.ProviderWithFlag(flags, ".", ko, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := ko.Load(fp, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := ko.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database_url").Errorf("database url is required")
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").With("key", "jwt_secret").Errorf("JWT_SECRET is required")
	}
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http_addr").Errorf("http address is required")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return oops.Code("CONFIG_INVALID").With("key", "log_format").
			Errorf("log format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log_level").Wrap(err)
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "token_ttl").Errorf("token ttl must be positive")
	}
	return nil
}
