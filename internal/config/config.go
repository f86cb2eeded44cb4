// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	LogLevel slog.Level

	OpenAI   OpenAIConfig
	Twilio   TwilioConfig
	Sessions SessionConfig

	WebhookDedupTTL    time.Duration
	MaxRequestBodySize int64
	HealthCheckTimeout time.Duration
	CORSAllowedOrigins []string
}

// OpenAIConfig configures the completion service.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// TwilioConfig configures webhook verification.
type TwilioConfig struct {
	AuthToken  string
	WebhookURL string // public URL signed by Twilio; empty rebuilds it per request
}

// SessionConfig selects and bounds the session store.
type SessionConfig struct {
	Store      string // memory, redis or sqlite
	TTL        time.Duration
	MaxSenders int
	RedisURL   string
	SQLitePath string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: level,
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: getEnv("OPENAI_BASE_URL", ""),
			Timeout: getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		Twilio: TwilioConfig{
			AuthToken:  strings.TrimSpace(getEnv("TWILIO_AUTH_TOKEN", "")),
			WebhookURL: strings.TrimSpace(getEnv("WHATSAPP_WEBHOOK_URL", "")),
		},
		Sessions: SessionConfig{
			Store:      strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
			TTL:        getEnvDuration("SESSION_TTL", 24*time.Hour),
			MaxSenders: getEnvInt("SESSION_MAX_SENDERS", 10000),
			RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/sessions.db"),
		},
		WebhookDedupTTL:    getEnvDuration("WEBHOOK_DEDUP_TTL", 10*time.Minute),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		HealthCheckTimeout: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set. Provider
// credentials are not required at startup; requests that need them fail with
// a configuration error instead.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("OPENAI_MODEL cannot be empty")
	}
	switch c.Sessions.Store {
	case "memory":
	case "redis":
		if _, err := redis.ParseURL(c.Sessions.RedisURL); err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
	case "sqlite":
		if c.Sessions.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty when SESSION_STORE=sqlite")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, redis, sqlite (got %q)", c.Sessions.Store)
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("SESSION_TTL must be >= 0")
	}
	if c.Sessions.MaxSenders < 0 {
		return fmt.Errorf("SESSION_MAX_SENDERS must be >= 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	return nil
}

// MissingCredentials lists the provider settings that are not configured.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Twilio.AuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	return missing
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
