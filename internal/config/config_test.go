package config

import (
	"testing"
	"time"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("TUBESTREAM_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("TUBESTREAM_REFRESH_TOKEN_SECRET", "refresh-secret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("expected default access TTL of 1h, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 10*24*time.Hour {
		t.Fatalf("expected default refresh TTL of 10 days, got %s", cfg.RefreshTokenTTL)
	}
	if !cfg.CookieSecure {
		t.Fatalf("cookies default to secure")
	}
	if cfg.MaxUploadBytes != 512<<20 {
		t.Fatalf("expected default upload cap, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadHonoursOverrides(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("TUBESTREAM_PORT", "9999")
	t.Setenv("TUBESTREAM_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("TUBESTREAM_COOKIE_SECURE", "false")
	t.Setenv("TUBESTREAM_S3_BUCKET", "media-bucket")
	t.Setenv("TUBESTREAM_HISTORY_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 9999 {
		t.Fatalf("expected overridden port, got %d", cfg.AppPort)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %s", cfg.AccessTokenTTL)
	}
	if cfg.CookieSecure {
		t.Fatalf("expected insecure cookies when overridden")
	}
	if cfg.ObjectStore.Bucket != "media-bucket" {
		t.Fatalf("expected bucket override, got %q", cfg.ObjectStore.Bucket)
	}
	if cfg.HistoryWorkers != 8 {
		t.Fatalf("expected 8 history workers, got %d", cfg.HistoryWorkers)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("TUBESTREAM_PORT", "eight-thousand")
	t.Setenv("TUBESTREAM_AUTH_RATE_WINDOW", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.AppPort != 8080 {
		t.Fatalf("malformed port should fall back to default, got %d", cfg.AppPort)
	}
	if cfg.AuthRateWindow != time.Minute {
		t.Fatalf("malformed window should fall back to default, got %s", cfg.AuthRateWindow)
	}
}

func TestLoadRequiresTokenSecrets(t *testing.T) {
	t.Setenv("TUBESTREAM_ACCESS_TOKEN_SECRET", "")
	t.Setenv("TUBESTREAM_REFRESH_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error when token secrets are missing")
	}
}
