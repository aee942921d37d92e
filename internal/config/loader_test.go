package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %s, got %s", DefaultPort, cfg.Server.Port)
	}
	if cfg.Store.Path == "" {
		t.Error("expected a default store path")
	}
	if cfg.Hooks.Cooldown != 10*time.Second {
		t.Errorf("expected 10s cooldown, got %v", cfg.Hooks.Cooldown)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing yaml should not be an error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected defaults, got port %s", cfg.Server.Port)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.yaml")
	yaml := "server:\n  port: \"9999\"\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("expected yaml port 9999, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected yaml level debug, got %s", cfg.Logging.Level)
	}
	// untouched sections keep defaults
	if cfg.Store.Path == "" {
		t.Error("expected default store path to survive partial yaml")
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SWITCHBOARD_PORT", "4567")
	t.Setenv("SWITCHBOARD_URL", "http://127.0.0.1:4567")
	t.Setenv("SWITCHBOARD_HOOK_COOLDOWN", "30s")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.Port != "4567" {
		t.Errorf("expected env port 4567, got %s", cfg.Server.Port)
	}
	if cfg.Hooks.BrokerURL != "http://127.0.0.1:4567" {
		t.Errorf("expected env broker url, got %s", cfg.Hooks.BrokerURL)
	}
	if cfg.Hooks.Cooldown != 30*time.Second {
		t.Errorf("expected 30s cooldown, got %v", cfg.Hooks.Cooldown)
	}
}
