package database

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
)

// testDatabaseConfig points at the database used by integration tests
func testDatabaseConfig() config.DatabaseConfig {
	cfg := config.DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_gestauto_sales",
		SSLMode:  "disable",
	}
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		cfg.Host = host
	}
	return cfg
}

func TestNew(t *testing.T) {
	cfg := testDatabaseConfig()
	db, err := New(Config{DSN: cfg.DSN(), MaxOpenConns: 10})
	if err != nil {
		t.Skipf("Skipping test - no database available: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 10 {
		t.Errorf("Expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestMigrations_UpAndVersion(t *testing.T) {
	cfg := testDatabaseConfig()
	db, err := InitFromConfig(cfg)
	if err != nil {
		t.Skipf("Skipping test - no database available: %v", err)
	}
	db.Close()

	runner, err := NewMigrationRunner(cfg.URL())
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	defer runner.Close()

	if err := runner.Up(); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	// A second run is a no-op
	if err := runner.Up(); err != nil {
		t.Fatalf("Second Up failed: %v", err)
	}

	version, dirty, ok, err := runner.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if !ok || dirty || version < 1 {
		t.Errorf("Expected clean version >= 1, got version=%d dirty=%v ok=%v", version, dirty, ok)
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("Unexpected migration file %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("Expected at least one migration")
	}
	for version := range ups {
		if !downs[version] {
			t.Errorf("Migration %s has no down file", version)
		}
	}
}
