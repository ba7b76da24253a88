package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_EMAIL", "owner@example.com")
	t.Setenv("FOLIO_ADMIN_PASSWORD", "password123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8787" || cfg.AccessTTL != 15*time.Minute || cfg.RefreshTTL != 720*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "sqlite:") {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseURL)
	}
	if !cfg.CookieSecure || cfg.Seed {
		t.Errorf("unexpected flags secure=%v seed=%v", cfg.CookieSecure, cfg.Seed)
	}
	if cfg.RedisURL != "" || cfg.MeiliURL != "" {
		t.Errorf("optional services should default off, got %q %q", cfg.RedisURL, cfg.MeiliURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_EMAIL", "owner@example.com")
	t.Setenv("FOLIO_ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("FOLIO_ACCESS_TTL", "5m")
	t.Setenv("FOLIO_SEED", "true")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AccessTTL != 5*time.Minute || !cfg.Seed || !cfg.S3UseSSL {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRequiresOwner(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_EMAIL", "")
	t.Setenv("FOLIO_ADMIN_PASSWORD", "")
	t.Setenv("FOLIO_ADMIN_PASSWORD_HASH", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected owner validation error")
	}
	for _, want := range []string{"FOLIO_ADMIN_EMAIL", "FOLIO_ADMIN_PASSWORD"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %s", err, want)
		}
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("FOLIO_ADMIN_EMAIL", "owner@example.com")
	t.Setenv("FOLIO_ADMIN_PASSWORD", "password123")
	t.Setenv("FOLIO_ACCESS_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
