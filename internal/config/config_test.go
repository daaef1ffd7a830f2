package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, body string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("CONFIG_ENV", "test")
}

func TestLoad(t *testing.T) {
	writeConfigFile(t, "mode: release\nsecret: s3cret\nport: 9090\n")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Secret != "s3cret" || cfg.Port != 9090 {
		t.Errorf("cfg = %+v, want secret/port from file", cfg)
	}
	// unset keys keep their defaults
	if cfg.RoomCapacity != 5 || cfg.PongWait <= cfg.PingPeriod {
		t.Errorf("defaults: capacity=%d ping=%v pong=%v", cfg.RoomCapacity, cfg.PingPeriod, cfg.PongWait)
	}
}

func TestLoadSecretRequired(t *testing.T) {
	writeConfigFile(t, "mode: release\n")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a release config with no secret")
	}
}

func TestLoadDebugGeneratesSecret(t *testing.T) {
	writeConfigFile(t, "mode: debug\n")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Secret == "" {
		t.Error("debug mode left the secret empty")
	}
}
