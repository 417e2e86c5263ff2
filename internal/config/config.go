/**
 * @description
 * Configuration loader for the Polaris backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL, session secret) are missing.
 * - AUTH_BYPASS is the single switch consulted by both the middleware and the
 *   client facade; it must never be enabled outside development.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Mail   MailConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port  string
	Env   string // "development", "test" or "production"
	AppID string // public application id handed to clients
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// AuthConfig holds session and magic-code settings
type AuthConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	JWKSURL       string // optional: accept RS256 tokens from an external IdP
	Bypass        bool   // dev escape hatch: skip auth gating everywhere
	MagicCodeTTL  time.Duration
}

// MailConfig holds SMTP settings for magic-code delivery.
// When Host is empty, codes are written to the application log instead.
type MailConfig struct {
	Host string
	Port string
	From string
	User string
	Pass string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod injects env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:  getEnv("PORT", "8080"),
			Env:   getEnv("GO_ENV", "development"),
			AppID: getEnv("APP_ID", ""),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Auth: AuthConfig{
			SessionSecret: sanitizeCredential(getEnv("SESSION_SECRET", "")),
			SessionTTL:    time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60*24*7)) * time.Minute,
			JWKSURL:       getEnv("SESSION_JWKS_URL", ""),
			Bypass:        getEnvAsBool("AUTH_BYPASS", false),
			MagicCodeTTL:  time.Duration(getEnvAsInt("MAGIC_CODE_TTL_MINUTES", 10)) * time.Minute,
		},
		Mail: MailConfig{
			Host: getEnv("SMTP_HOST", ""),
			Port: getEnv("SMTP_PORT", "587"),
			From: getEnv("SMTP_FROM", "login@polaris.local"),
			User: getEnv("SMTP_USER", ""),
			Pass: sanitizeCredential(getEnv("SMTP_PASS", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.SessionSecret == "" && cfg.Server.Env != "test" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.Auth.Bypass && cfg.Server.Env == "production" {
		return fmt.Errorf("AUTH_BYPASS must not be set in production")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper to get env var as bool ("true"/"1" are truthy)
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	return valueStr == "true" || valueStr == "1"
}
