package config

import (
	"os"
	"testing"
	"time"
)

var configKeys = []string{
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_MAX_OPEN_CONNS",
	"STORAGE_DRIVER", "API_HOST", "API_PORT", "ENABLE_AUTH", "SHARED_SECRET",
	"WORKER_POLL_INTERVAL", "WORKER_BATCH_SIZE", "MAX_RETRY_ATTEMPTS", "RETRY_BACKOFF_BASE",
	"EVENTS_PUBLISHER", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"ORDERS_WEBHOOK_URL", "ORDERS_WEBHOOK_TOKEN", "ORDERS_WEBHOOK_TIMEOUT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "DASHBOARD_CACHE_TTL",
	"LOG_LEVEL", "LOG_FORMAT", "SALES_TIMEZONE", "DEFAULT_SALES_PERSON_ID",
}

// clearEnv unsets every configuration variable and restores the originals afterwards
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func setEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for key, value := range values {
		os.Setenv(key, value)
		t.Cleanup(func() { os.Unsetenv(key) })
	}
}

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: StoragePostgres},
		Worker:  WorkerConfig{PollInterval: time.Second, BatchSize: 1},
		Retry:   RetryConfig{MaxAttempts: 3, BackoffBase: time.Second},
		Events:  EventsConfig{Publisher: PublisherLog},
		Sales:   SalesConfig{Timezone: "UTC"},
	}
}

func TestLoad_FromEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	setEnv(t, map[string]string{
		"DB_HOST":              "testhost",
		"DB_PORT":              "5433",
		"DB_USER":              "testuser",
		"DB_PASSWORD":          "testpass",
		"DB_NAME":              "testdb",
		"API_PORT":             "9090",
		"WORKER_POLL_INTERVAL": "10s",
		"MAX_RETRY_ATTEMPTS":   "3",
		"ENABLE_AUTH":          "true",
		"SHARED_SECRET":        "test_secret",
		"EVENTS_PUBLISHER":     "kafka",
		"KAFKA_BROKERS":        "kafka-1:9092,kafka-2:9092",
		"REDIS_ADDR":           "localhost:6379",
		"DASHBOARD_CACHE_TTL":  "1m",
		"SALES_TIMEZONE":       "America/Sao_Paulo",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Host != "testhost" {
		t.Errorf("Expected DB_HOST=testhost, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5433" {
		t.Errorf("Expected DB_PORT=5433, got %s", cfg.Database.Port)
	}
	if cfg.Database.DBName != "testdb" {
		t.Errorf("Expected DB_NAME=testdb, got %s", cfg.Database.DBName)
	}
	if cfg.API.Port != "9090" {
		t.Errorf("Expected API_PORT=9090, got %s", cfg.API.Port)
	}
	if cfg.Worker.PollInterval != 10*time.Second {
		t.Errorf("Expected WORKER_POLL_INTERVAL=10s, got %v", cfg.Worker.PollInterval)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Expected MAX_RETRY_ATTEMPTS=3, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Auth.Enabled || cfg.Auth.SharedSecret != "test_secret" {
		t.Errorf("Expected auth enabled with secret, got %+v", cfg.Auth)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "kafka-2:9092" {
		t.Errorf("Expected two kafka brokers, got %v", cfg.Events.KafkaBrokers)
	}
	if !cfg.Redis.CacheEnabled() {
		t.Error("Expected dashboard cache to be enabled")
	}
	loc, err := cfg.Sales.Location()
	if err != nil || loc.String() != "America/Sao_Paulo" {
		t.Errorf("Expected America/Sao_Paulo location, got %v (%v)", loc, err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected default DB_HOST=localhost, got %s", cfg.Database.Host)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default DB_MAX_OPEN_CONNS=25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Storage.Driver != StoragePostgres {
		t.Errorf("Expected default storage driver postgres, got %s", cfg.Storage.Driver)
	}
	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("Expected default address 0.0.0.0:8080, got %s", cfg.API.Addr())
	}
	if cfg.Worker.PollInterval != 5*time.Second {
		t.Errorf("Expected default WORKER_POLL_INTERVAL=5s, got %v", cfg.Worker.PollInterval)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BackoffBase != 30*time.Second {
		t.Errorf("Unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Events.Publisher != PublisherLog {
		t.Errorf("Expected default publisher log, got %s", cfg.Events.Publisher)
	}
	if cfg.Redis.CacheEnabled() {
		t.Error("Expected cache to be disabled without REDIS_ADDR")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Sales.Timezone != "UTC" {
		t.Errorf("Expected default SALES_TIMEZONE=UTC, got %s", cfg.Sales.Timezone)
	}
}

func TestLoad_InvalidNumber(t *testing.T) {
	clearEnv(t)
	setEnv(t, map[string]string{"MAX_RETRY_ATTEMPTS": "many"})

	if _, err := Load(); err == nil {
		t.Error("Expected error for non-numeric MAX_RETRY_ATTEMPTS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "auth without secret", mutate: func(c *Config) { c.Auth.Enabled = true }, wantErr: true},
		{name: "auth with secret", mutate: func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.SharedSecret = "s"
		}},
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, wantErr: true},
		{name: "memory storage", mutate: func(c *Config) { c.Storage.Driver = StorageMemory }},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Events.Publisher = PublisherKafka }, wantErr: true},
		{name: "kafka with brokers", mutate: func(c *Config) {
			c.Events.Publisher = PublisherKafka
			c.Events.KafkaBrokers = []string{"localhost:9092"}
			c.Events.KafkaTopic = "sales"
		}},
		{name: "webhook without url", mutate: func(c *Config) { c.Events.Publisher = PublisherWebhook }, wantErr: true},
		{name: "webhook with url", mutate: func(c *Config) {
			c.Events.Publisher = PublisherWebhook
			c.Events.WebhookURL = "https://orders.example.com/events"
		}},
		{name: "unknown publisher", mutate: func(c *Config) { c.Events.Publisher = "sns" }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.Worker.PollInterval = 0 }, wantErr: true},
		{name: "zero batch size", mutate: func(c *Config) { c.Worker.BatchSize = 0 }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.Sales.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "malformed default sales person", mutate: func(c *Config) { c.Sales.DefaultSalesPersonID = "bob" }, wantErr: true},
		{name: "default sales person", mutate: func(c *Config) {
			c.Sales.DefaultSalesPersonID = "6f1c2a8e-3b7d-4c59-9e0a-2d4f8b1c7e35"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "sales", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=sales sslmode=disable connect_timeout=5"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDatabaseConfig_URL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "sales", Password: "p@ss", DBName: "gestauto", SSLMode: "disable"}
	want := "postgres://sales:p%40ss@db:5432/gestauto?sslmode=disable"
	if got := d.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
