package postgres

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPoolWithConfigRejectsBadURL(t *testing.T) {
	_, err := NewPoolWithConfig(context.Background(), PoolConfig{DatabaseURL: "not-a-url"})
	if err == nil || !strings.Contains(err.Error(), "parse database URL") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestNewPoolWithConfigPingFailure(t *testing.T) {
	cfg := PoolConfig{
		DatabaseURL:    "postgres://ledger@127.0.0.1:1/ledger?sslmode=disable",
		MaxConns:       1,
		ConnectTimeout: 200 * time.Millisecond,
	}

	_, err := NewPoolWithConfig(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}

func TestRollbackMigrationsRejectsNonPositiveSteps(t *testing.T) {
	err := RollbackMigrations("postgres://unused", "unused", 0, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Fatalf("expected steps validation error, got %v", err)
	}
}

func TestMigrationsMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	if err := RunMigrations("postgres://ledger@127.0.0.1:1/ledger", missing, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}

	if _, err := GetMigrationStatus("postgres://ledger@127.0.0.1:1/ledger", missing); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
