package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration, populated from the environment
type Config struct {
	ServerPort     string `env:"PORT" envDefault:"8080"`
	AppBaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	Debug          bool   `env:"DEBUG" envDefault:"false"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`

	// Database: sqlite (default), postgres or mysql
	DatabaseType string `env:"DB_TYPE" envDefault:"sqlite"`
	DatabasePath string `env:"DB_PATH" envDefault:"./screenpoints.db"`
	DatabaseURL  string `env:"DB_URL"`

	// Auth
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenDuration time.Duration `env:"TOKEN_DURATION" envDefault:"24h"`

	// OAuth sign-in (parents)
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	AppleClientID      string `env:"APPLE_CLIENT_ID"`
	AppleClientSecret  string `env:"APPLE_CLIENT_SECRET"`

	// Email (Amazon SES); disabled when SESFromEmail is empty
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	SESFromEmail string `env:"SES_FROM_EMAIL"`
	SESFromName  string `env:"SES_FROM_NAME" envDefault:"Screen Points"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Analytics aggregation
	AggregationSchedule string        `env:"AGGREGATION_SCHEDULE" envDefault:"15 0 * * *"`
	PurgeSchedule       string        `env:"PURGE_SCHEDULE" envDefault:"45 2 * * *"`
	EventRetention      time.Duration `env:"EVENT_RETENTION" envDefault:"1080h"` // 45 days
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
