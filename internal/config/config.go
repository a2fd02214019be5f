// Package config loads server configuration from defaults, an optional YAML
// file and RESTX_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/restx/internal/logging"
	"github.com/aretw0/restx/pkg/registry"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide configuration of the dispatch core and its server.
type Config struct {
	LoadMode string `yaml:"load_mode" env:"RESTX_FACTORY_LOAD"`
	BaseURI  string `yaml:"base_uri" env:"RESTX_BASE_URI"`

	// ContextName selects the local machines of every request in onrequest mode.
	ContextName string `yaml:"context_name" env:"RESTX_CONTEXT_NAME"`

	LogLevel string `yaml:"log_level" env:"RESTX_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"RESTX_LOG_JSON"`

	Addr            string        `yaml:"addr" env:"RESTX_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"RESTX_SHUTDOWN_TIMEOUT"`
	MaxBody         int64         `yaml:"max_body" env:"RESTX_MAX_BODY"`

	// SignatureKey, when set, is registered as the session signature key.
	SignatureKey string `yaml:"signature_key" env:"RESTX_SIGNATURE_KEY"`

	// Redis holds the shared signature key when RedisAddr is set.
	RedisAddr     string `yaml:"redis_addr" env:"RESTX_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"RESTX_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"RESTX_REDIS_DB"`
	RedisKey      string `yaml:"redis_key" env:"RESTX_REDIS_KEY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LoadMode:        string(registry.LoadOnStartup),
		LogLevel:        "info",
		Addr:            ":8080",
		ShutdownTimeout: 5 * time.Second,
		MaxBody:         1 << 20,
		RedisKey:        "restx:signature-key",
	}
}

// Load reads the configuration. path may be empty; a missing file is an error
// only when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c Config) Validate() error {
	var errs []error
	if _, err := registry.ParseLoadMode(c.LoadMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.MaxBody < 0 {
		errs = append(errs, fmt.Errorf("max_body must not be negative, got %d", c.MaxBody))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	return errors.Join(errs...)
}
