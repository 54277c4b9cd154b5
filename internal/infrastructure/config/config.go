package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// OverrideFile is the name, under DataDir, of the optional remote settings file.
const OverrideFile = "remote_override.json"

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	DataDir   string `env:"DATA_DIR,  default=./data"`

	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL, default=30m"`
	LookupTimeout  time.Duration `env:"LOOKUP_TIMEOUT,   default=5s"`

	Remote RemoteConfig
	Redis  RedisConfig
}

type RemoteConfig struct {
	URL      string `env:"REMOTE_URL"`
	Key      string `env:"REMOTE_KEY"`
	User     string `env:"REMOTE_USER,     default=anon"`
	Database string `env:"REMOTE_DATABASE, default=hotel_ops"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type override struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// RemoteConfigured reports whether both the remote URL and key are known.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.URL != "" && c.Remote.Key != ""
}

// Production reports whether the service runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l, then fills an empty remote URL or key
// from the override file.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.applyOverride(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyOverride() error {
	if c.RemoteConfigured() {
		return nil
	}
	path := filepath.Join(c.DataDir, OverrideFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var o override
	if err := json.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.Remote.URL == "" {
		c.Remote.URL = o.URL
	}
	if c.Remote.Key == "" {
		c.Remote.Key = o.Key
	}
	return nil
}
