package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event publishers
const (
	PublisherKafka   = "kafka"
	PublisherWebhook = "webhook"
	PublisherLog     = "log"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	API      APIConfig
	Auth     AuthConfig
	Worker   WorkerConfig
	Retry    RetryConfig
	Events   EventsConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Sales    SalesConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string `envconfig:"DB_HOST" default:"localhost"`
	Port         string `envconfig:"DB_PORT" default:"5432"`
	User         string `envconfig:"DB_USER" default:"postgres"`
	Password     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName       string `envconfig:"DB_NAME" default:"gestauto_sales"`
	SSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host string `envconfig:"API_HOST" default:"0.0.0.0"`
	Port string `envconfig:"API_PORT" default:"8080"`
}

// AuthConfig guards the lead-capture webhook
type AuthConfig struct {
	Enabled      bool   `envconfig:"ENABLE_AUTH" default:"false"`
	SharedSecret string `envconfig:"SHARED_SECRET"`
}

// WorkerConfig holds outbox relay settings
type WorkerConfig struct {
	PollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"WORKER_BATCH_SIZE" default:"10"`
}

// RetryConfig holds event delivery retry settings
type RetryConfig struct {
	MaxAttempts int           `envconfig:"MAX_RETRY_ATTEMPTS" default:"5"`
	BackoffBase time.Duration `envconfig:"RETRY_BACKOFF_BASE" default:"30s"`
}

// EventsConfig selects and configures the domain event publisher
type EventsConfig struct {
	Publisher      string        `envconfig:"EVENTS_PUBLISHER" default:"log"`
	KafkaBrokers   []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic     string        `envconfig:"KAFKA_TOPIC" default:"gestauto.sales.events"`
	WebhookURL     string        `envconfig:"ORDERS_WEBHOOK_URL"`
	WebhookToken   string        `envconfig:"ORDERS_WEBHOOK_TOKEN"`
	WebhookTimeout time.Duration `envconfig:"ORDERS_WEBHOOK_TIMEOUT" default:"30s"`
}

// RedisConfig holds the dashboard cache settings
type RedisConfig struct {
	Addr              string        `envconfig:"REDIS_ADDR"`
	Password          string        `envconfig:"REDIS_PASSWORD"`
	DB                int           `envconfig:"REDIS_DB" default:"0"`
	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"30s"`
}

// CacheEnabled reports whether dashboard snapshots should be cached
func (r RedisConfig) CacheEnabled() bool {
	return r.Addr != "" && r.DashboardCacheTTL > 0
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// SalesConfig holds business calendar settings
type SalesConfig struct {
	Timezone string `envconfig:"SALES_TIMEZONE" default:"UTC"`

	// DefaultSalesPersonID owns leads captured from the website form when the form names nobody
	DefaultSalesPersonID string `envconfig:"DEFAULT_SALES_PERSON_ID"`
}

// Location resolves the configured sales timezone
func (s SalesConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// DefaultSalesPerson parses DefaultSalesPersonID. It returns uuid.Nil when unset.
func (s SalesConfig) DefaultSalesPerson() (uuid.UUID, error) {
	if s.DefaultSalesPersonID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s.DefaultSalesPersonID)
}

// Load loads configuration from a .env file (if present) and the environment
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects inconsistent configuration
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.SharedSecret == "" {
		return fmt.Errorf("SHARED_SECRET is required when ENABLE_AUTH is true")
	}

	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Events.Publisher {
	case PublisherKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_PUBLISHER is kafka")
		}
		if c.Events.KafkaTopic == "" {
			return fmt.Errorf("KAFKA_TOPIC is required when EVENTS_PUBLISHER is kafka")
		}
	case PublisherWebhook:
		if c.Events.WebhookURL == "" {
			return fmt.Errorf("ORDERS_WEBHOOK_URL is required when EVENTS_PUBLISHER is webhook")
		}
	case PublisherLog:
	default:
		return fmt.Errorf("unknown EVENTS_PUBLISHER %q", c.Events.Publisher)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("MAX_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be at least 1")
	}

	if _, err := c.Sales.Location(); err != nil {
		return fmt.Errorf("invalid SALES_TIMEZONE %q: %w", c.Sales.Timezone, err)
	}
	if _, err := c.Sales.DefaultSalesPerson(); err != nil {
		return fmt.Errorf("invalid DEFAULT_SALES_PERSON_ID %q: %w", c.Sales.DefaultSalesPersonID, err)
	}
	return nil
}

// DSN renders the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=5",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL renders the connection as a postgres:// URL, the form the migration driver expects
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the listen address of the API server
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}
