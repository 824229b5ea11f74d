package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`

	// Identity store
	DatabaseURL   string `env:"DATABASE_URL" env-required:"true"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" env-default:"25"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" env-default:"5"`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"migrations"`

	// Batch ledger. An empty REDIS_ADDR keeps the ledger in process memory.
	RedisAddr       string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" env-default:"0"`
	LedgerLease     time.Duration `env:"LEDGER_LEASE" env-default:"2m"`
	LedgerRetention time.Duration `env:"LEDGER_RETENTION" env-default:"24h"`

	// Push provider
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL" env-default:"http://localhost:9090"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" env-default:"10s"`

	// Maximum batch calls per second to the provider.
	ProviderRateLimit int `env:"PROVIDER_RATE_LIMIT" env-default:"50"`

	// Pipeline
	TriggerStatus           string `env:"TRIGGER_STATUS" env-default:"pending"`
	RecipientRole           string `env:"RECIPIENT_ROLE" env-default:"branch_admin"`
	InvalidationConcurrency int    `env:"INVALIDATION_CONCURRENCY" env-default:"8"`

	// Kafka change feed
	KafkaEnabled    bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	KafkaTopic      string   `env:"KAFKA_TOPIC" env-default:"orders.changes"`
	KafkaGroupID    string   `env:"KAFKA_GROUP_ID" env-default:"orderpush"`
	ConsumerWorkers int      `env:"CONSUMER_WORKERS" env-default:"4"`

	// Redelivery backoff for the Kafka adapter: step 1, 2, 3; later attempts
	// reuse the last step.
	RedeliveryBackoff1 time.Duration `env:"REDELIVERY_BACKOFF_1" env-default:"5s"`
	RedeliveryBackoff2 time.Duration `env:"REDELIVERY_BACKOFF_2" env-default:"30s"`
	RedeliveryBackoff3 time.Duration `env:"REDELIVERY_BACKOFF_3" env-default:"120s"`
	MaxRedeliveries    int           `env:"MAX_REDELIVERIES" env-default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TriggerStatus == "" {
		return nil, fmt.Errorf("TRIGGER_STATUS must not be empty")
	}
	if cfg.InvalidationConcurrency < 1 {
		cfg.InvalidationConcurrency = 1
	}
	if cfg.ConsumerWorkers < 1 {
		cfg.ConsumerWorkers = 1
	}
	if cfg.ProviderRateLimit < 1 {
		cfg.ProviderRateLimit = 1
	}
	return &cfg, nil
}

// RedeliveryBackoff returns the backoff schedule: index 0 = first retry delay.
func (c *Config) RedeliveryBackoff() []time.Duration {
	return []time.Duration{c.RedeliveryBackoff1, c.RedeliveryBackoff2, c.RedeliveryBackoff3}
}
