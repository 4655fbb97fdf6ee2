// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Optional: when empty the service runs on the in-memory
	// content store.
	DatabaseURL string `koanf:"database_url"`

	// Redis. Optional: when empty the service runs on the in-memory cache.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Ranking calibration file (JSON). Optional; defaults apply when empty.
	CalibrationPath string `koanf:"calibration_path"`

	// Feed warmup job
	WarmupEnabled         bool `koanf:"warmup_enabled"`
	WarmupIntervalMinutes int  `koanf:"warmup_interval_minutes"`
	WarmupBackoffMinutes  int  `koanf:"warmup_backoff_minutes"`

	// Feature Flags
	ContextualBoostEnabled bool `koanf:"contextual_boost_enabled"` // Enable context-aware boosting on /feed/contextual
}

// Configuration validation errors.
var (
	ErrInvalidPort           = errors.New("PORT must be a valid integer")
	ErrPortOutOfRange        = errors.New("PORT must be between 1 and 65535")
	ErrInvalidRedisDB        = errors.New("REDIS_DB must not be negative")
	ErrInvalidWarmupInterval = errors.New("WARMUP_INTERVAL_MINUTES must be positive")
	ErrInvalidWarmupBackoff  = errors.New("WARMUP_BACKOFF_MINUTES must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort                   = 8080
	DefaultEnv                    = "development"
	DefaultWarmupEnabled          = true
	DefaultWarmupIntervalMinutes  = 30
	DefaultWarmupBackoffMinutes   = 5
	DefaultContextualBoostEnabled = true
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try TRAILFEED_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"TRAILFEED_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	redisDB, redisDBErr := getEnvIntOrDefault("REDIS_DB", k.Int("redis_db"), 0)
	if redisDBErr != nil {
		loadErrs = append(loadErrs, redisDBErr)
	}

	warmupInterval, warmupIntervalErr := getEnvIntOrDefault("WARMUP_INTERVAL_MINUTES", k.Int("warmup_interval_minutes"), DefaultWarmupIntervalMinutes)
	if warmupIntervalErr != nil {
		loadErrs = append(loadErrs, warmupIntervalErr)
	}

	warmupBackoff, warmupBackoffErr := getEnvIntOrDefault("WARMUP_BACKOFF_MINUTES", k.Int("warmup_backoff_minutes"), DefaultWarmupBackoffMinutes)
	if warmupBackoffErr != nil {
		loadErrs = append(loadErrs, warmupBackoffErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"TRAILFEED_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:              getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisPassword:          getEnvOrKoanf("REDIS_PASSWORD", k, "redis_password"),
		RedisDB:                redisDB,
		CalibrationPath:        getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		WarmupEnabled:          getEnvBoolOrDefault("WARMUP_ENABLED", k, "warmup_enabled", DefaultWarmupEnabled),
		WarmupIntervalMinutes:  warmupInterval,
		WarmupBackoffMinutes:   warmupBackoff,
		ContextualBoostEnabled: getEnvBoolOrDefault("CONTEXTUAL_BOOST_ENABLED", k, "contextual_boost_enabled", DefaultContextualBoostEnabled),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBoolOrDefault returns the environment variable as bool if set,
// otherwise the koanf value if present, or the default.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// Validate checks that all configuration values are coherent.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrPortOutOfRange)
	}
	if c.RedisDB < 0 {
		errs = append(errs, ErrInvalidRedisDB)
	}
	if c.WarmupIntervalMinutes < 1 {
		errs = append(errs, ErrInvalidWarmupInterval)
	}
	if c.WarmupBackoffMinutes < 1 {
		errs = append(errs, ErrInvalidWarmupBackoff)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     fmt.Sprintf("%d", c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_addr":               valueOrNotSet(c.RedisAddr),
		"redis_password":           maskSecret(c.RedisPassword),
		"redis_db":                 fmt.Sprintf("%d", c.RedisDB),
		"calibration_path":         valueOrNotSet(c.CalibrationPath),
		"warmup_enabled":           fmt.Sprintf("%t", c.WarmupEnabled),
		"warmup_interval_minutes":  fmt.Sprintf("%d", c.WarmupIntervalMinutes),
		"warmup_backoff_minutes":   fmt.Sprintf("%d", c.WarmupBackoffMinutes),
		"contextual_boost_enabled": fmt.Sprintf("%t", c.ContextualBoostEnabled),
	}
}

func valueOrNotSet(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
