package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port string `env:"PORT" envDefault:"8080" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	WorkerID                 string `env:"WORKER_ID"`
	WorkerBatchSize          int    `env:"WORKER_BATCH_SIZE" envDefault:"10" validate:"min=1,max=500"`
	WorkerPollIntervalMs     int    `env:"WORKER_POLL_INTERVAL" envDefault:"1000" validate:"min=1000,max=60000"`
	WorkerHeartbeatMs        int    `env:"WORKER_HEARTBEAT_INTERVAL" envDefault:"30000" validate:"min=5000,max=300000"`
	WorkerStaleClaimMinutes  int    `env:"WORKER_STALE_CLAIM_MINUTES" envDefault:"2" validate:"min=1,max=60"`
	WorkerShutdownDrainSec   int    `env:"WORKER_SHUTDOWN_DRAIN_SEC" envDefault:"30" validate:"min=1,max=300"`
	WorkerHealthPort         string `env:"WORKER_HEALTH_PORT" envDefault:"3002"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	// BrokerURL is the NATS connection string; empty disables pub/sub and
	// falls back to the no-op transport.
	BrokerURL string `env:"BROKER_URL"`

	// RedisURL backs the cross-process worker liveness cache; empty
	// disables it and liveness tracking becomes best-effort pub/sub only.
	RedisURL string `env:"REDIS_URL"`

	// JWKSURL is the JWKS endpoint for RS256 token verification against a
	// hosted identity provider. When set, it takes precedence over JWTSecret.
	JWKSURL   string `env:"JWKS_URL"`
	JWTSecret string `env:"JWT_SECRET"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	ResendFrom   string `env:"RESEND_FROM"`
	NotifyTo     string `env:"NOTIFY_TO"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.WorkerPollIntervalMs) * time.Millisecond
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.WorkerHeartbeatMs) * time.Millisecond
}

func (c *Config) StaleClaimAge() time.Duration {
	return time.Duration(c.WorkerStaleClaimMinutes) * time.Minute
}

func (c *Config) ShutdownDrainTimeout() time.Duration {
	return time.Duration(c.WorkerShutdownDrainSec) * time.Second
}
