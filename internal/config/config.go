package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime configuration sourced from the environment
type Config struct {
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	GinMode            string        `mapstructure:"GIN_MODE"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	JWTSecret          string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpirationHours int64         `mapstructure:"JWT_EXPIRATION_HOURS"`
	BcryptCost         int           `mapstructure:"BCRYPT_COST"`
	DBQueryTimeout     time.Duration `mapstructure:"DB_QUERY_TIMEOUT"`
	DBConfig           `mapstructure:",squash"`
}

var defaults = map[string]any{
	"SERVER_PORT":          "8080",
	"GIN_MODE":             "debug",
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
	"JWT_SECRET_KEY":       "",
	"JWT_EXPIRATION_HOURS": 0,
	"BCRYPT_COST":          10,
	"DB_QUERY_TIMEOUT":     "5s",
	"DB_HOST":              "",
	"DB_PORT":              "",
	"DB_USER":              "",
	"DB_PASSWORD":          "",
	"DB_NAME":              "",
	"DB_SSLMODE":           "disable",
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET_KEY not set in environment")
	}
	if cfg.JWTExpirationHours < 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must not be negative, got %d", cfg.JWTExpirationHours)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
	}
	if cfg.DBQueryTimeout <= 0 {
		return nil, fmt.Errorf("DB_QUERY_TIMEOUT must be positive, got %s", cfg.DBQueryTimeout)
	}
	if err := cfg.DBConfig.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Addr returns the address the HTTP server binds to
func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
