package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"DATA_DIR": dir}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SessionIdleTTL != 30*time.Minute || cfg.LookupTimeout != 5*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.SessionIdleTTL, cfg.LookupTimeout)
	}
	if cfg.Remote.User != "anon" || cfg.Remote.Database != "hotel_ops" {
		t.Fatalf("unexpected remote defaults: %+v", cfg.Remote)
	}
	if cfg.RemoteConfigured() {
		t.Fatal("remote must not be configured without url and key")
	}
}

func TestLoadWith_Environment(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATA_DIR":         t.TempDir(),
		"REMOTE_URL":       "mongodb://db.hotel.test:27017",
		"REMOTE_KEY":       "secret",
		"REDIS_ADDR":       "localhost:6379",
		"REDIS_DB":         "2",
		"SESSION_IDLE_TTL": "1m",
		"ENV":              "production",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RemoteConfigured() || !cfg.Production() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Redis.DB != 2 || cfg.SessionIdleTTL != time.Minute {
		t.Fatalf("unexpected values: %+v", cfg)
	}
}

func TestLoadWith_OverrideFileFillsEmptyFields(t *testing.T) {
	dir := t.TempDir()
	body := `{"url": "mongodb://override.hotel.test", "key": "from-file"}`
	if err := os.WriteFile(filepath.Join(dir, OverrideFile), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATA_DIR":   dir,
		"REMOTE_URL": "mongodb://env.hotel.test",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.URL != "mongodb://env.hotel.test" {
		t.Fatalf("environment url must win, got %q", cfg.Remote.URL)
	}
	if cfg.Remote.Key != "from-file" {
		t.Fatalf("key not taken from override, got %q", cfg.Remote.Key)
	}
	if !cfg.RemoteConfigured() {
		t.Fatal("expected remote configured")
	}
}

func TestLoadWith_MalformedOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, OverrideFile), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"DATA_DIR": dir})); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWith_InvalidDuration(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"DATA_DIR":       t.TempDir(),
		"LOOKUP_TIMEOUT": "soon",
	}))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
