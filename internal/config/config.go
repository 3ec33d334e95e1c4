// Package config loads and validates all environment variables at startup.
// Every other package receives typed values — nothing reads os.Getenv directly,
// with one deliberate exception: the Gemini API key is re-read per call via
// GeminiAPIKey so that a key supplied after startup still takes effect.
package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port    string // default "8080"
	Env     string // "development" | "staging" | "production"
	BaseURL string // e.g. "https://app.decisioncompass.io"

	// ── Gemini ────────────────────────────────────────────────────────────────
	// The API key itself is intentionally NOT captured here — see GeminiAPIKey.
	GeminiModel string        // default "gemini-2.5-flash"
	MaxAttempts int           // default 3
	BackoffBase time.Duration // default 1s

	// ── Sessions ──────────────────────────────────────────────────────────────
	SessionTTL      time.Duration // default 30m
	JanitorInterval time.Duration // default 5m

	// ── Resend ────────────────────────────────────────────────────────────────
	// Optional. When RESEND_API_KEY is empty the email endpoint returns 503.
	ResendAPIKey  string
	EmailFromAddr string // e.g. "reports@decisioncompass.io"
	EmailFromName string // e.g. "Decision Compass"
}

// Load reads all environment variables and returns a Config.
// It automatically loads a .env file from the working directory when present,
// so plain `go run ./cmd/api` works in development without any wrapper.
// Real environment variables always take precedence over .env values.
//
// Nothing is hard-required: a missing Gemini key degrades to a per-call
// missing_credential failure rather than refusing to start, and a missing
// Resend key simply disables email delivery.
func Load() (*Config, error) {
	loadDotEnv(".env")

	c := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxAttempts:     getEnvAsInt("GEMINI_MAX_ATTEMPTS", 3),
		BackoffBase:     getEnvAsDuration("GEMINI_BACKOFF_BASE", time.Second),
		SessionTTL:      getEnvAsDuration("SESSION_TTL_MINUTES", 30*time.Minute),
		JanitorInterval: getEnvAsDuration("JANITOR_INTERVAL", 5*time.Minute),
		ResendAPIKey:    os.Getenv("RESEND_API_KEY"),
		EmailFromAddr:   getEnv("EMAIL_FROM_ADDR", "reports@decisioncompass.io"),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "Decision Compass"),
	}

	return c, nil
}

// GeminiAPIKey returns the current value of GEMINI_API_KEY. Read fresh on
// every AI call so a key exported into the environment after startup (or
// rotated in place) is picked up without a restart.
func (c *Config) GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// ─── DOT-ENV LOADER ──────────────────────────────────────────────────────────

// loadDotEnv reads key=value pairs from path and sets them in the environment,
// but only for keys that are not already set. This means real env vars (e.g.
// from Docker / Railway / your shell) always win over the file.
// Missing file, blank lines, and #-comments are all silently ignored.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return // file absent — that's fine
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		// Strip optional surrounding quotes: KEY="value" or KEY='value'
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		// Only set if the key isn't already present in the environment.
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// Try a plain integer first (treated as seconds, minutes, or hours
	// depending on the variable name).
	if value, err := strconv.Atoi(valueStr); err == nil {
		switch {
		case strings.Contains(key, "HOURS"):
			return time.Duration(value) * time.Hour
		case strings.Contains(key, "MINUTES"):
			return time.Duration(value) * time.Minute
		default:
			return time.Duration(value) * time.Second
		}
	}
	// Fall back to Go duration syntax: "30s", "5m", "1h", etc.
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
