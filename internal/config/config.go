package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application.
// Following 12-factor app principles, all config is loaded from environment variables.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Data     DataConfig
	Loyalty  LoyaltyConfig
	Session  SessionConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

type AuthConfig struct {
	APIKeys []string // Valid API keys for mutating endpoints
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Backend       string // memory, file, sqlite, postgres, mongo
	DataDir       string // file and sqlite backends
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
}

// DataConfig points at the static JSON tables the storefront consumes.
type DataConfig struct {
	ProductsFile    string
	LevelsFile      string
	PointsRulesFile string
	CouponsFile     string
}

type LoyaltyConfig struct {
	BaseMultiplier float64
	HistoryCap     int
}

type SessionConfig struct {
	TTLHours int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
		},
		Auth: AuthConfig{
			APIKeys: getEnvAsSlice("API_KEYS", []string{"apitest"}),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "file"),
			DataDir:       getEnv("DATA_DIR", "./data"),
			PostgresDSN:   getEnv("POSTGRES_DSN", ""),
			MongoURI:      getEnv("MONGO_URI", ""),
			MongoDatabase: getEnv("MONGO_DATABASE", "levelup"),
		},
		Data: DataConfig{
			ProductsFile:    getEnv("PRODUCTS_FILE", "./data/products.json"),
			LevelsFile:      getEnv("LEVELS_FILE", "./data/levels.json"),
			PointsRulesFile: getEnv("POINTS_RULES_FILE", "./data/points_rules.json"),
			CouponsFile:     getEnv("COUPONS_FILE", "./data/coupons.json"),
		},
		Loyalty: LoyaltyConfig{
			BaseMultiplier: getEnvAsFloat("LOYALTY_MULTIPLIER", 1.0),
			HistoryCap:     getEnvAsInt("HISTORY_CAP", 50),
		},
		Session: SessionConfig{
			TTLHours: getEnvAsInt("SESSION_TTL_HOURS", 24),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}

	validBackends := map[string]bool{"memory": true, "file": true, "sqlite": true, "postgres": true, "mongo": true}
	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s (must be memory, file, sqlite, postgres, or mongo)", c.Storage.Backend)
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
	}
	if c.Storage.Backend == "mongo" && c.Storage.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required for the mongo backend")
	}

	if c.Loyalty.HistoryCap < 1 {
		return fmt.Errorf("HISTORY_CAP must be at least 1")
	}
	if c.Loyalty.BaseMultiplier <= 0 {
		return fmt.Errorf("LOYALTY_MULTIPLIER must be positive")
	}
	if c.Session.TTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
