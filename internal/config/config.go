// Package config centralizes runtime configuration for the repricing
// engine, loaded entirely from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Best-effort local-dev convenience; production deployments set real
	// environment variables and this is a silent no-op.
	_ = godotenv.Load()
}

// Config is the full set of environment-driven settings for the service.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Queue     QueueConfig
	Webhook   WebhookConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
	Sellers   SellersConfig
}

// SellersConfig lists the merchant's own seller identifiers, used by the
// normalizer to resolve our_seller_id out of a marketplace-A offer list
// against known listing ownership.
type SellersConfig struct {
	OwnSellerIDs []string `envconfig:"OWN_SELLER_IDS"`
}

// ServerConfig controls the HTTP control-plane surface (health/stats/webhook).
type ServerConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	DrainTimeout    time.Duration `envconfig:"DRAIN_TIMEOUT" default:"10s"`
}

// StoreConfig configures the Redis-backed key-value store gateway (C6).
type StoreConfig struct {
	Addr         string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"20"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	TTL          time.Duration `envconfig:"STORE_TTL" default:"2h"`

	// CircuitBreakerThreshold is the fraction (0,1] of transiently failed C6
	// calls over CircuitBreakerWindow that trips the breaker open.
	CircuitBreakerThreshold float64       `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"0.5"`
	CircuitBreakerWindow    time.Duration `envconfig:"CIRCUIT_BREAKER_WINDOW" default:"30s"`
	CircuitBreakerCooldown  time.Duration `envconfig:"CIRCUIT_BREAKER_COOLDOWN" default:"15s"`
}

// QueueConfig configures the marketplace-A SQS long-poll adapter (C1).
type QueueConfig struct {
	URL                 string        `envconfig:"SQS_QUEUE_URL" default:""`
	Region              string        `envconfig:"AWS_REGION" default:"us-east-1"`
	BatchSize           int32         `envconfig:"SQS_BATCH_SIZE" default:"10"`
	WaitTimeSeconds     int32         `envconfig:"SQS_WAIT_TIME_SECONDS" default:"20"`
	VisibilityTimeout   int32         `envconfig:"SQS_VISIBILITY_TIMEOUT_SECONDS" default:"300"`
	MaxReceiveCount     int32         `envconfig:"SQS_MAX_RECEIVE_COUNT" default:"3"`
	PollRatePerSecond   float64       `envconfig:"SQS_POLL_RATE_PER_SECOND" default:"5"`
}

// WebhookConfig configures the marketplace-B webhook adapter (C1).
type WebhookConfig struct {
	Path           string `envconfig:"WEBHOOK_PATH" default:"/marketplace-b/webhook"`
	SharedSecret   string `envconfig:"WEBHOOK_SHARED_SECRET" default:""`
	InternalQueueBound int `envconfig:"WEBHOOK_QUEUE_BOUND" default:"1000"`
}

// WorkerConfig controls the orchestrator's worker pool (C3).
type WorkerConfig struct {
	MaxInFlight       int           `envconfig:"WORKER_MAX_IN_FLIGHT" default:"100"`
	EventDeadline     time.Duration `envconfig:"EVENT_DEADLINE" default:"30s"`
	StatsLogInterval  time.Duration `envconfig:"STATS_LOG_INTERVAL" default:"60s"`
}

// TelemetryConfig configures the OpenTelemetry metrics exporter (C7).
type TelemetryConfig struct {
	Enabled         bool          `envconfig:"OTEL_ENABLED" default:"false"`
	OTLPEndpoint    string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	OTLPInsecure    bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	MetricInterval  time.Duration `envconfig:"OTEL_METRIC_INTERVAL" default:"30s"`
	ServiceName     string        `envconfig:"OTEL_SERVICE_NAME" default:"repricer"`
	ShutdownTimeout time.Duration `envconfig:"OTEL_SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics. cmd/repricer calls Load instead
// and exits on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
