package app

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mobiq.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MOBIQ_CONFIG", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DEFAULT_LANG", "")
	t.Setenv("SESSION_IDLE_TTL_HOURS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.DefaultLang != "ro" {
		t.Fatalf("default lang = %q", cfg.DefaultLang)
	}
	if cfg.SessionIdleTTLHours != 2 {
		t.Fatalf("session ttl = %d", cfg.SessionIdleTTLHours)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "http_addr: \":9090\"\nsession_idle_ttl_hours: 4\n")
	t.Setenv("MOBIQ_CONFIG", path)
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("SESSION_IDLE_TTL_HOURS", "")
	t.Setenv("DEFAULT_LANG", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http addr = %q, want file value", cfg.HTTPAddr)
	}
	if cfg.SessionIdleTTLHours != 4 {
		t.Fatalf("session ttl = %d, want file value", cfg.SessionIdleTTLHours)
	}
	// Fields absent from the file keep their defaults.
	if cfg.DefaultLang != "ro" {
		t.Fatalf("default lang = %q", cfg.DefaultLang)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "http_addr: \":9090\"\ncsrf_enforced: true\nauth_rate_limit_per_minute: 10\n")
	t.Setenv("MOBIQ_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("CSRF_ENFORCED", "false")
	t.Setenv("AUTH_RATE_LIMIT_PER_MINUTE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("http addr = %q, want env value", cfg.HTTPAddr)
	}
	if cfg.CSRFEnforced {
		t.Fatal("csrf enforced: env false must beat file true")
	}
	// Env left unset does not mask the file value.
	if cfg.AuthRateLimitPerMin != 10 {
		t.Fatalf("rate limit = %d, want file value", cfg.AuthRateLimitPerMin)
	}
}

func TestLoadConfigMissingFileErrors(t *testing.T) {
	t.Setenv("MOBIQ_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
