package config

import (
	"os"
	"strconv"
	"time"

	"custdash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Auth    AuthConfig
	Server  ServerConfig
	Upload  UploadConfig
	Session SessionConfig
	Log     LogConfig
}

// AuthConfig holds the single shared secret guarding the dashboard
type AuthConfig struct {
	Password string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// UploadConfig holds dataset upload settings
type UploadConfig struct {
	MaxBytes           int64
	MaxConcurrentLoads int64
	// Delimiter forces the CSV delimiter; empty means detect from the header line.
	Delimiter string
}

// SessionConfig holds browser session settings
type SessionConfig struct {
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load auth configuration")
	}
	config.Auth = *authConfig

	config.Server = *loadServerConfig()
	config.Upload = *loadUploadConfig()
	config.Session = *loadSessionConfig()
	config.Log = LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadAuthConfig() (*AuthConfig, error) {
	password := os.Getenv("DASHBOARD_PASSWORD")
	if password == "" {
		// name used by earlier deployments of the dashboard
		password = os.Getenv("STREAMLIT_PASSWORD")
	}
	if password == "" {
		return nil, errors.ConfigInvalid("DASHBOARD_PASSWORD is required")
	}
	return &AuthConfig{Password: password}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxBytes:           int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		MaxConcurrentLoads: int64(getEnvIntOrDefault("MAX_CONCURRENT_LOADS", 4)),
		Delimiter:          os.Getenv("CSV_DELIMITER"),
	}
}

func loadSessionConfig() *SessionConfig {
	return &SessionConfig{
		TTL:        getEnvDurationOrDefault("SESSION_TTL", 12*time.Hour),
		CookieName: getEnvOrDefault("SESSION_COOKIE", "custdash_session"),
		Secure:     getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),
	}
}

func validateConfig(config *Config) error {
	if config.Upload.MaxBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Upload.MaxConcurrentLoads <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_LOADS must be positive")
	}
	switch config.Upload.Delimiter {
	case "", ",", ";", "\t":
	default:
		return errors.ConfigInvalid("CSV_DELIMITER must be one of ',', ';' or a tab")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	if config.Server.GinMode != "debug" && config.Server.GinMode != "release" && config.Server.GinMode != "test" {
		return errors.ConfigInvalid("GIN_MODE must be debug, release or test")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
