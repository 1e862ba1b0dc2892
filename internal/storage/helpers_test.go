package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/time-economy/internal/config"
	"github.com/time-economy/internal/retry"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return &config.PostgresConfig{
		Host:           get("POSTGRES_HOST", "localhost"),
		Port:           get("POSTGRES_PORT", "5432"),
		Database:       get("POSTGRES_DB", "time_economy_test"),
		User:           get("POSTGRES_USER", "timebank"),
		Password:       get("POSTGRES_PASSWORD", "timebank_dev_password"),
		SSLMode:        "disable",
		MaxConnections: 10,
	}
}

func testMigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations", "postgres")
}

// setupTestDB connects to the integration database, migrates it and clears
// both tables. The test is skipped when Postgres is unavailable.
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(testContext(t), cfg, &retry.RetryConfig{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	})
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := NewMigrator(cfg.URL(), testMigrationsPath()).Up(); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	if _, err := db.Pool().Exec(testContext(t), `TRUNCATE needs, profiles`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return db
}
