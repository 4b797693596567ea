// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection --
// never read from a process-wide singleton.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Redis holds the durable key-value backend settings. An empty URL
	// selects the in-memory fallback backend at startup.
	Redis RedisConfig

	// Auth holds session and CSRF settings.
	Auth AuthConfig

	// Abuse holds screening and rate-limit settings.
	Abuse AbuseConfig
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	// Empty means no durable backend is configured.
	URL string
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// CSRFSecret keys the anti-forgery token HMAC. An empty secret
	// disables CSRF protection for the deployment -- availability over
	// strictness, by explicit policy.
	CSRFSecret string

	// CSRFWindow is how long a CSRF token stays valid after issuance.
	CSRFWindow time.Duration

	// SessionTTL is how long sessions last before expiring.
	SessionTTL time.Duration

	// SeedUsers are accounts created idempotently at startup. Parsed from
	// SEED_USERS as comma-separated "username:email:password:role" tuples.
	SeedUsers []SeedUser
}

// SeedUser is a bootstrap account applied at process start.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AbuseConfig holds abuse-screening settings.
type AbuseConfig struct {
	// LoginMaxAttempts is the number of failed logins allowed per identity
	// within LoginWindow before every further attempt gets 429.
	LoginMaxAttempts int

	// LoginWindow is the rate-limit window duration.
	LoginWindow time.Duration

	// MinFormFill is the minimum believable time between form render and
	// submission. Faster submissions are classified as automated.
	MinFormFill time.Duration

	// ExtraDisposableDomains extends the built-in disposable email
	// domain blocklist.
	ExtraDisposableDomains []string
}

// Load reads configuration from a .env file (if present) and environment
// variables with sensible defaults. Returns an error only for values that
// cannot be parsed.
func Load() (*Config, error) {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},

		Auth: AuthConfig{
			CSRFSecret: getEnv("CSRF_SECRET", ""),
			CSRFWindow: getEnvDuration("CSRF_WINDOW", time.Hour),
			SessionTTL: getEnvDuration("SESSION_TTL", 720*time.Hour),
		},

		Abuse: AbuseConfig{
			LoginMaxAttempts:       getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:            getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
			MinFormFill:            getEnvDuration("MIN_FORM_FILL", 3*time.Second),
			ExtraDisposableDomains: getEnvList("DISPOSABLE_DOMAINS", nil),
		},
	}

	seeds, err := parseSeedUsers(getEnv("SEED_USERS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Auth.SeedUsers = seeds

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// parseSeedUsers parses comma-separated "username:email:password:role"
// tuples. The role segment is optional and defaults to "viewer".
func parseSeedUsers(raw string) ([]SeedUser, error) {
	if raw == "" {
		return nil, nil
	}

	var seeds []SeedUser
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid SEED_USERS entry %q: want username:email:password[:role]", entry)
		}
		seed := SeedUser{
			Username: strings.TrimSpace(parts[0]),
			Email:    strings.TrimSpace(parts[1]),
			Password: parts[2],
			Role:     "viewer",
		}
		if len(parts) == 4 {
			seed.Role = strings.TrimSpace(parts[3])
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "15m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
