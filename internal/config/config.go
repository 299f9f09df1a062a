package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// RedisURL is optional. When empty the server runs with an in-process
	// broker and cross-instance fan-out is disabled.
	RedisURL string `env:"REDIS_URL"`

	// PubSubChannel is the broker channel shared by all instances.
	PubSubChannel string `env:"PUBSUB_CHANNEL" default:"websocket_messages"`

	// JWTSecret signs and verifies client access tokens.
	JWTSecret string `env:"JWT_SECRET"`

	HeartbeatTimeout      time.Duration `env:"HEARTBEAT_TIMEOUT" default:"60s"`
	HeartbeatScanInterval time.Duration `env:"HEARTBEAT_SCAN_INTERVAL" default:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HeartbeatTimeout <= 0 {
		return fmt.Errorf("HEARTBEAT_TIMEOUT must be positive")
	}
	if cfg.HeartbeatScanInterval <= 0 {
		return fmt.Errorf("HEARTBEAT_SCAN_INTERVAL must be positive")
	}
	return nil
}
