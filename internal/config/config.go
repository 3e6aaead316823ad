// Package config provides configuration structures and validation for the
// payout service. It handles environment-based configuration for the HTTP
// server, databases, message queues, the transfer gateway and the payout
// orchestration parameters.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Gateway     GatewayConfig
	Payout      PayoutConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	SettlementTopic   string // Inbound settled-payment events
	PayoutEventsTopic string // Outbound payout lifecycle events
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the failure archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// GatewayConfig contains transfer gateway client configuration
type GatewayConfig struct {
	BaseURL         string
	APIKey          string
	PlatformAccount string // Account payouts are issued on behalf of
	MaxElapsedTime  time.Duration
}

// PayoutConfig contains payout orchestration parameters
type PayoutConfig struct {
	Enabled           bool
	TickInterval      time.Duration // Dispatcher polling cadence
	MinimumAmount     int64         // Global floor in minor units
	MaximumAmount     int64         // Global ceiling in minor units
	MaxRetries        int
	RetryBaseDelay    time.Duration
	BatchSize         int           // Chunk size for batch mode
	BatchChunkDelay   time.Duration // Pause between batch chunks
	ProcessingTimeout time.Duration // Per external call
	MaxConcurrent     int           // Worker pool size
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SettlementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SETTLEMENT_TOPIC is required")
	}
	if c.Kafka.PayoutEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYOUT_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Gateway config
	if c.Gateway.BaseURL == "" {
		validationErrors = append(validationErrors, "GATEWAY_BASE_URL is required")
	}
	if c.Gateway.PlatformAccount == "" {
		validationErrors = append(validationErrors, "GATEWAY_PLATFORM_ACCOUNT is required")
	}
	if c.Gateway.MaxElapsedTime <= 0 {
		validationErrors = append(validationErrors, "GATEWAY_MAX_ELAPSED_TIME must be greater than 0")
	}

	// Validate Payout config
	if c.Payout.TickInterval <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_TICK_INTERVAL must be greater than 0")
	}
	if c.Payout.MinimumAmount <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_MINIMUM_AMOUNT must be greater than 0")
	}
	if c.Payout.MaximumAmount <= c.Payout.MinimumAmount {
		validationErrors = append(validationErrors, "PAYOUT_MAXIMUM_AMOUNT must be greater than PAYOUT_MINIMUM_AMOUNT")
	}
	if c.Payout.MaxRetries <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_MAX_RETRIES must be greater than 0")
	}
	if c.Payout.RetryBaseDelay <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_RETRY_BASE_DELAY must be greater than 0")
	}
	if c.Payout.BatchSize <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_BATCH_SIZE must be greater than 0")
	}
	if c.Payout.BatchChunkDelay < 0 {
		validationErrors = append(validationErrors, "PAYOUT_BATCH_CHUNK_DELAY cannot be negative")
	}
	if c.Payout.ProcessingTimeout <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_PROCESSING_TIMEOUT must be greater than 0")
	}
	if c.Payout.MaxConcurrent <= 0 {
		validationErrors = append(validationErrors, "PAYOUT_MAX_CONCURRENT must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
