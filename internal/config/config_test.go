package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t,
		"PORT", "LOG_LEVEL", "OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "OPENAI_TIMEOUT",
		"TWILIO_AUTH_TOKEN", "WHATSAPP_WEBHOOK_URL", "SESSION_STORE", "SESSION_TTL",
		"SESSION_MAX_SENDERS", "REDIS_URL", "SQLITE_PATH", "WEBHOOK_DEDUP_TTL",
		"MAX_REQUEST_BODY_SIZE", "HEALTH_CHECK_TIMEOUT", "CORS_ALLOWED_ORIGINS",
	)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected server settings %+v", cfg)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.Timeout != 30*time.Second {
		t.Errorf("unexpected OpenAI settings %+v", cfg.OpenAI)
	}
	if cfg.Sessions.Store != "memory" || cfg.Sessions.TTL != 24*time.Hour || cfg.Sessions.MaxSenders != 10000 {
		t.Errorf("unexpected session settings %+v", cfg.Sessions)
	}
	if cfg.WebhookDedupTTL != 10*time.Minute {
		t.Errorf("unexpected dedup ttl %v", cfg.WebhookDedupTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Sessions.RedisURL != "redis://localhost:6379/0" || cfg.Sessions.SQLitePath != "./data/sessions.db" {
		t.Errorf("unexpected store locations %+v", cfg.Sessions)
	}
	if got := cfg.MissingCredentials(); len(got) != 2 {
		t.Errorf("expected both credentials missing, got %v", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", " sk-live ")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("SESSION_STORE", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/sessions.db")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.OpenAI.APIKey != "sk-live" {
		t.Errorf("expected trimmed API key, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Sessions.Store != "sqlite" || cfg.Sessions.TTL != 90*time.Minute {
		t.Errorf("unexpected session settings %+v", cfg.Sessions)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if got := cfg.MissingCredentials(); len(got) != 0 {
		t.Errorf("expected no missing credentials, got %v", got)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string][2]string{
		"store":     {"SESSION_STORE", "postgres"},
		"log level": {"LOG_LEVEL", "verbose"},
		"port":      {"PORT", ""},
		"redis url": {"REDIS_URL", "mysql://nope"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			if kv[0] == "REDIS_URL" {
				t.Setenv("SESSION_STORE", "redis")
			}
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), kv[0]) {
				t.Errorf("expected error to name %s, got %v", kv[0], err)
			}
		})
	}
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TEST_DURATION", "soon")
	if got := getEnvDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("expected fallback, got %v", got)
	}
}
