package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// PostgresURL is the DSN for the live store (profiles, audit, retention).
	// Empty means in-memory stores (development and tests).
	PostgresURL string

	// RedisURL backs the retention scheduler's leased lock. Empty means a
	// process-local lease.
	RedisURL string

	// KafkaBrokers receive high-risk access alerts. Empty disables the
	// Kafka publisher and alerts are logged only.
	KafkaBrokers []string
	AlertTopic   string

	// MasterKeySecret seeds the HKDF keyring. Must be overridden in production.
	MasterKeySecret string
	ActiveKeyID     string

	// ApprovalSigningKey verifies supervisor-approval tokens.
	ApprovalSigningKey string

	// RetentionInterval is how often the retention runner wakes up per table.
	RetentionInterval time.Duration
}

// RedisConfig holds connection tuning for the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("SENTRA_ADDR", ":8080"),
		PostgresURL:        os.Getenv("SENTRA_POSTGRES_URL"),
		RedisURL:           os.Getenv("SENTRA_REDIS_URL"),
		AlertTopic:         envOr("SENTRA_ALERT_TOPIC", "sentra.access.high-risk"),
		MasterKeySecret:    envOr("SENTRA_MASTER_KEY", "dev-master-key-change-in-production"),
		ActiveKeyID:        envOr("SENTRA_ACTIVE_KEY_ID", "k1"),
		ApprovalSigningKey: envOr("SENTRA_APPROVAL_SIGNING_KEY", "dev-approval-key-change-in-production"),
		RetentionInterval:  24 * time.Hour,
	}

	if brokers := os.Getenv("SENTRA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if raw := os.Getenv("SENTRA_RETENTION_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RetentionInterval = d
		}
	}
	return cfg
}

// Redis returns connection settings for the shared Redis client.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
