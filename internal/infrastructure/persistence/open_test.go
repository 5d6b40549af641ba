package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
)

func TestOpenSQLite(t *testing.T) {
	cfg := &config.StorageConfig{
		Driver: "sqlite",
		Key:    "museflow_sessions",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "m.db")},
	}
	repo, cleanup, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cleanup()

	if _, ok := repo.(repository.SchemaMigrator); !ok {
		t.Error("sqlite repository should support Migrate")
	}
	if hc, ok := repo.(repository.HealthChecker); !ok {
		t.Error("sqlite repository should support Ping")
	} else if err := hc.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	repo, cleanup, err := Open(&config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cleanup()
	if got, err := repo.Load(context.Background()); err != nil || got != nil {
		t.Errorf("Load = %v, %v; want nil, nil", got, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, _, err := Open(&config.StorageConfig{Driver: "tape"}); err == nil {
		t.Fatal("Open should fail for unknown driver")
	}
}
