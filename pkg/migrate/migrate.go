package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Run executes a goose command against the snapshot store schema.
func Run(ctx context.Context, db *sql.DB, backend, dir, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	dialect, err := dialectFor(backend)
	if err != nil {
		return err
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func dialectFor(backend string) (string, error) {
	switch backend {
	case config.StoreBackendSQLite:
		return "sqlite3", nil
	case config.StoreBackendPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("no sql dialect for store backend %q", backend)
	}
}
