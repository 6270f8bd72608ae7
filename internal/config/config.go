package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Dev-only signing secrets, substituted when APP_ENV=development and no
// secret is configured. Startup fails in any other environment without
// real secrets.
const (
	devAccessSecret  = "crisalida-dev-access-secret"
	devRefreshSecret = "crisalida-dev-refresh-secret"
)

// Config holds the application configuration.
type Config struct {
	Env          string
	ServerPort   int
	DatabasePath string
	CORSOrigin   string
	LogLevel     string

	AccessSecret      string
	RefreshSecret     string
	PrevAccessSecret  string // accepted for verification only, rotation grace
	PrevRefreshSecret string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
}

// Load loads configuration from the environment, reading a .env file first
// if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:               getEnv("APP_ENV", EnvDevelopment),
		ServerPort:        port,
		DatabasePath:      getEnv("DATABASE_PATH", "./crisalida.db"),
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://localhost:3000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AccessSecret:      os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:     os.Getenv("JWT_REFRESH_SECRET"),
		PrevAccessSecret:  os.Getenv("JWT_ACCESS_SECRET_PREVIOUS"),
		PrevRefreshSecret: os.Getenv("JWT_REFRESH_SECRET_PREVIOUS"),
		AccessTokenTTL:    accessTTL,
		RefreshTokenTTL:   refreshTTL,
	}

	if cfg.AccessSecret == "" {
		if cfg.Env != EnvDevelopment {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET is required when APP_ENV=%s", cfg.Env)
		}
		cfg.AccessSecret = devAccessSecret
	}
	if cfg.RefreshSecret == "" {
		if cfg.Env != EnvDevelopment {
			return nil, fmt.Errorf("JWT_REFRESH_SECRET is required when APP_ENV=%s", cfg.Env)
		}
		cfg.RefreshSecret = devRefreshSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}

// Helper to get an environment variable with a default value. An empty
// value counts as unset.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
