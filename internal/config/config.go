package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Mail     MailConfig
	Log      LogConfig
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string // listen address (e.g., ":9091")
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path, ":memory:" allowed
}

// AuthConfig contains staff token settings.
type AuthConfig struct {
	JWTSecret string // HS256 secret used to verify staff bearer tokens
}

// MailConfig contains SMTP relay and template settings.
// An empty Host disables SMTP and messages are only logged.
type MailConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	BrandName string // shown in notification subjects and signatures
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a fixed JWT secret when none is set.
// WARNING: development only.
func LoadWithDefaults() (*Config, error) {
	return load("dev-secret-change-me")
}

func load(defaultSecret string) (*Config, error) {
	port, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":9091"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "atelier.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultSecret),
		},
		Mail: MailConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      port,
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("MAIL_FROM", ""),
			BrandName: getEnv("BRAND_NAME", "Wahret Zmen"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		return nil, fmt.Errorf("SMTP_PORT out of range: %d", cfg.Mail.Port)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	smtp := "disabled"
	if c.Mail.Host != "" {
		smtp = fmt.Sprintf("%s:%d", c.Mail.Host, c.Mail.Port)
	}
	return fmt.Sprintf("Config{HTTP: %s, DB: %s, SMTP: %s, Auth: *** (masked) ***}", c.HTTP.Address, c.Database.Path, smtp)
}
