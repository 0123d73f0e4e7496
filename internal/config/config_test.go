package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	body := []byte(`
env: dev
storage_path: "postgres://localhost/studio?sslmode=disable"
timezone: "Europe/Berlin"
studio:
  base_address: "1 Main St"
geo:
  timeout: 2s
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Studio.BaseAddress != "1 Main St" {
		t.Fatalf("unexpected base address %q", cfg.Studio.BaseAddress)
	}
	if cfg.Geo.Timeout != 2*time.Second {
		t.Fatalf("expected geo timeout 2s, got %s", cfg.Geo.Timeout)
	}
	if cfg.Geo.Provider != "haversine" {
		t.Fatalf("expected default provider haversine, got %q", cfg.Geo.Provider)
	}
	if cfg.Booking.LockTTL != 10*time.Second {
		t.Fatalf("expected default lock ttl 10s, got %s", cfg.Booking.LockTTL)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
