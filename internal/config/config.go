// Package config loads ClearDues server configuration from a TOML file
// with environment variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all server configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Auth   AuthConfig   `toml:"auth"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr   string `toml:"addr"`
	DBPath string `toml:"db_path"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret,omitempty"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:   ":8080",
			DBPath: "./data/cleardues.db",
		},
		Auth: AuthConfig{
			TokenTTLHours: 24,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, returning defaults if it doesn't
// exist, then applies environment overrides (CLEARDUES_ADDR,
// CLEARDUES_DB_PATH, CLEARDUES_JWT_SECRET).
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Server.Addr = getEnv("CLEARDUES_ADDR", cfg.Server.Addr)
	cfg.Server.DBPath = getEnv("CLEARDUES_DB_PATH", cfg.Server.DBPath)
	cfg.Auth.JWTSecret = getEnv("CLEARDUES_JWT_SECRET", cfg.Auth.JWTSecret)

	return cfg, nil
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be set (auth.jwt_secret or CLEARDUES_JWT_SECRET)")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("token ttl must be positive, got %d", c.Auth.TokenTTLHours)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
