// Package config handles environment variable loading for ports, database
// strings and pipeline tuning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// APIKey protects the control surface. Empty means open (dev mode).
	APIKey string

	// Scheduler
	SchedulerInterval time.Duration
	ShutdownGrace     time.Duration

	// Processor
	BatchSize   int
	Concurrency int
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// Queue leasing
	LeaseTimeout time.Duration

	// Delivery webhook
	DeliveryEndpoint string
	DeliveryTimeout  time.Duration

	// Worker poll loop
	WorkerPollInterval time.Duration
	WorkerMaxBackoff   time.Duration

	// OTLP collector address for tracing; empty disables tracing.
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           8080,
		SchedulerInterval:  time.Minute,
		ShutdownGrace:      30 * time.Second,
		BatchSize:          10,
		Concurrency:        4,
		MaxAttempts:        5,
		BackoffBase:        10 * time.Second,
		BackoffCap:         10 * time.Minute,
		LeaseTimeout:       5 * time.Minute,
		DeliveryTimeout:    30 * time.Second,
		WorkerPollInterval: time.Second,
		WorkerMaxBackoff:   30 * time.Second,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.APIKey = os.Getenv("API_KEY")
	cfg.DeliveryEndpoint = os.Getenv("DELIVERY_ENDPOINT")
	cfg.OTELEndpoint = os.Getenv("OTEL_ENDPOINT")

	var err error
	if cfg.HTTPPort, err = intEnv("PORT", cfg.HTTPPort); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = intEnv("BATCH_SIZE", cfg.BatchSize); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = intEnv("CONCURRENCY", cfg.Concurrency); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = intEnv("MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return nil, err
	}

	if cfg.SchedulerInterval, err = durationEnv("SCHEDULER_INTERVAL", cfg.SchedulerInterval); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", cfg.ShutdownGrace); err != nil {
		return nil, err
	}
	if cfg.BackoffBase, err = durationEnv("BACKOFF_BASE", cfg.BackoffBase); err != nil {
		return nil, err
	}
	if cfg.BackoffCap, err = durationEnv("BACKOFF_CAP", cfg.BackoffCap); err != nil {
		return nil, err
	}
	if cfg.LeaseTimeout, err = durationEnv("LEASE_TIMEOUT", cfg.LeaseTimeout); err != nil {
		return nil, err
	}
	if cfg.DeliveryTimeout, err = durationEnv("DELIVERY_TIMEOUT", cfg.DeliveryTimeout); err != nil {
		return nil, err
	}
	if cfg.WorkerPollInterval, err = durationEnv("WORKER_POLL_INTERVAL", cfg.WorkerPollInterval); err != nil {
		return nil, err
	}
	if cfg.WorkerMaxBackoff, err = durationEnv("WORKER_MAX_BACKOFF", cfg.WorkerMaxBackoff); err != nil {
		return nil, err
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
