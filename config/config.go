package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	RemoteURL    string
	RemoteAPIKey string
	RealtimeURL  string
	DatabasePath string
}

// Load reads configuration from the environment (and .env if present).
// It returns an explicit instance rather than populating a package global
// so session restarts and tests can build isolated configurations.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:          GetEnv("ENV", "development"),
		RemoteURL:    GetEnv("REMOTE_URL", ""),
		RemoteAPIKey: GetEnv("REMOTE_API_KEY", ""),
		RealtimeURL:  GetEnv("REMOTE_REALTIME_URL", ""),
		DatabasePath: GetEnv("DATABASE_PATH", "./data/kinkeeper.db"),
	}

	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("REMOTE_URL is required")
	}
	if cfg.RemoteAPIKey == "" {
		return nil, fmt.Errorf("REMOTE_API_KEY is required")
	}

	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
