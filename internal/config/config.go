// Package config loads carepoint settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the CLI and the local API need.
type Config struct {
	Backend BackendConfig
	Store   StoreConfig
	Server  ServerConfig
	Profile ProfileConfig
}

// BackendConfig describes the remote REST API.
type BackendConfig struct {
	BaseURL     string
	DoctorsPath string
	ProfilePath string
	Username    string
	Password    string
	Timeout     time.Duration
}

// StoreConfig selects the session store.
type StoreConfig struct {
	// Driver is one of memory, bbolt, sqlite, postgres, redis.
	Driver string
	// DSN is a file path for bbolt/sqlite, a connection string for
	// postgres, or host:port for redis.
	DSN          string
	Namespace    string
	Passphrase   string
	RedisPass    string
	RepairOnRead bool
}

// ServerConfig configures the local companion API.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins string
	// ActivityWebhookURL receives a JSON POST per session activity event.
	ActivityWebhookURL  string
	ActivityWebhookAuth string
}

// ProfileConfig configures profile projection.
type ProfileConfig struct {
	ImageBaseURL     string
	PlaceholderImage string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("CAREPOINT_PORT", "8787"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAREPOINT_PORT: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("CAREPOINT_API_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAREPOINT_API_TIMEOUT: %w", err)
	}
	repair, err := strconv.ParseBool(getEnv("CAREPOINT_REPAIR_ON_READ", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAREPOINT_REPAIR_ON_READ: %w", err)
	}

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL:     getEnv("CAREPOINT_API_URL", ""),
			DoctorsPath: getEnv("CAREPOINT_DOCTORS_PATH", "/doctors"),
			ProfilePath: getEnv("CAREPOINT_PROFILE_PATH", "/patient/profile"),
			Username:    getEnv("CAREPOINT_API_USER", ""),
			Password:    getEnv("CAREPOINT_API_PASSWORD", ""),
			Timeout:     timeout,
		},
		Store: StoreConfig{
			Driver:       getEnv("CAREPOINT_STORE", "bbolt"),
			DSN:          getEnv("CAREPOINT_STORE_DSN", "./data/carepoint.db"),
			Namespace:    getEnv("CAREPOINT_STORE_NAMESPACE", ""),
			Passphrase:   getEnv("CAREPOINT_PASSPHRASE", ""),
			RedisPass:    getEnv("CAREPOINT_REDIS_PASSWORD", ""),
			RepairOnRead: repair,
		},
		Server: ServerConfig{
			Host:        getEnv("CAREPOINT_HOST", "127.0.0.1"),
			Port:        port,
			CORSOrigins: getEnv("CAREPOINT_CORS_ORIGINS", ""),

			ActivityWebhookURL:  getEnv("CAREPOINT_ACTIVITY_WEBHOOK_URL", ""),
			ActivityWebhookAuth: getEnv("CAREPOINT_ACTIVITY_WEBHOOK_AUTH", ""),
		},
		Profile: ProfileConfig{
			ImageBaseURL:     getEnv("CAREPOINT_IMAGE_BASE_URL", ""),
			PlaceholderImage: getEnv("CAREPOINT_PLACEHOLDER_IMAGE", ""),
		},
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
