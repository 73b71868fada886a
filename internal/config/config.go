package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvBaseURL     = "PARKING_API_URL"
	EnvTokenPath   = "PARKING_TOKEN_PATH"
	EnvHTTPTimeout = "PARKING_HTTP_TIMEOUT"
	EnvRefreshSpec = "PARKING_REFRESH_SPEC"
)

type Config struct {
	BaseURL     string
	TokenPath   string
	HTTPTimeout time.Duration
	// RefreshSpec is a cron expression for the background reservation refresh.
	RefreshSpec string
}

// Load reads .env if present, then the environment, falling back to defaults.
func Load() Config {
	godotenv.Load()

	cfg := Config{
		BaseURL:     getEnv(EnvBaseURL, "http://localhost:8080"),
		TokenPath:   getEnv(EnvTokenPath, defaultTokenPath()),
		HTTPTimeout: getDuration(EnvHTTPTimeout, 10*time.Second),
		RefreshSpec: getEnv(EnvRefreshSpec, "@every 30s"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parkingapp-token"
	}
	return filepath.Join(home, ".parkingapp", "token")
}
