package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// EngineConfig carries the trigger engine knobs. All durations come from env
// as Go duration strings ("15m", "10s").
type EngineConfig struct {
	DwellCheckInterval       time.Duration
	BackgroundPollInterval   time.Duration
	BackgroundDistanceFilter float64
	StreamDistanceFilter     float64
	MaxSampleAge             time.Duration
}

type Config struct {
	Repositories RepositoriesConfig
	ServerPort   string
	MetricsPort  string
	Engine       EngineConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "geotrigger"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsPort: getEnvOrDefault("METRICS_PORT", "9090"),
		Engine: EngineConfig{
			DwellCheckInterval:       getDurationOrDefault("DWELL_CHECK_INTERVAL", 10*time.Second),
			BackgroundPollInterval:   getDurationOrDefault("BACKGROUND_POLL_INTERVAL", 15*time.Minute),
			BackgroundDistanceFilter: getFloatOrDefault("BACKGROUND_DISTANCE_FILTER_METERS", 100),
			StreamDistanceFilter:     getFloatOrDefault("STREAM_DISTANCE_FILTER_METERS", 10),
			MaxSampleAge:             getDurationOrDefault("MAX_SAMPLE_AGE", 5*time.Minute),
		},
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
