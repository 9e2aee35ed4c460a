package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "dev" {
		t.Fatalf("expected App.Env to be dev, got %q", cfg.App.Env)
	}
	if !cfg.App.IsDev() {
		t.Fatal("expected dev environment")
	}
	if cfg.Store.Normalized() != StoreBackendSQLite {
		t.Fatalf("unexpected store backend %q", cfg.Store.Backend)
	}
	if cfg.DB.DSN == "" {
		t.Fatal("expected a default sqlite DSN")
	}
	if cfg.Remote.Timeout != 10*time.Second {
		t.Fatalf("unexpected remote timeout %v", cfg.Remote.Timeout)
	}
	if cfg.Remote.OrderTimeout != 15*time.Second {
		t.Fatalf("unexpected order timeout %v", cfg.Remote.OrderTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("CARTSYNC_REMOTE_BASE_URL"); err != nil {
		t.Fatalf("failed to unset remote base url: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CARTSYNC_STORE_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("postgres backend without a DSN should fail")
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("CARTSYNC_STORE_BACKEND", "dynamo")

	if _, err := Load(); err == nil {
		t.Fatal("unknown store backend should fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("CARTSYNC_APP_ENV", "dev")
	t.Setenv("CARTSYNC_REMOTE_BASE_URL", "http://localhost:5000/api")
	t.Setenv("CARTSYNC_STORE_BACKEND", "sqlite")
	t.Setenv("CARTSYNC_DB_DSN", "")
}
