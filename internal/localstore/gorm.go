package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pharmakart/cartsync/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type snapshotRow struct {
	ScopeKey  string    `gorm:"column:scope_key;primaryKey"`
	Payload   string    `gorm:"column:payload"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (snapshotRow) TableName() string { return "cart_snapshots" }

// GormStore persists snapshots in a relational table. SQLite is the default
// on-device backend; Postgres is selectable for hosted deployments.
type GormStore struct {
	conn *gorm.DB
}

// NewGormStore boots a GORM-backed snapshot store from configuration.
func NewGormStore(ctx context.Context, backend string, cfg config.DBConfig, logg *logger.Logger) (*GormStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("snapshot store DSN is required")
	}

	var dialector gorm.Dialector
	switch backend {
	case config.StoreBackendSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case config.StoreBackendPostgres:
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	default:
		return nil, fmt.Errorf("gorm store does not support backend %q", backend)
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	applyPoolSettings(sqlDB, cfg)

	if logg != nil {
		logg.Info(ctx, "snapshot store connection established")
	}

	return &GormStore{conn: conn}, nil
}

// NewGormStoreFromConn wraps an existing connection, used by tests.
func NewGormStoreFromConn(conn *gorm.DB) *GormStore {
	return &GormStore{conn: conn}
}

func applyPoolSettings(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (g *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row snapshotRow
	err := g.conn.WithContext(ctx).First(&row, "scope_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading snapshot %q: %w", key, err)
	}
	return []byte(row.Payload), true, nil
}

func (g *GormStore) Set(ctx context.Context, key string, payload []byte) error {
	row := snapshotRow{
		ScopeKey:  key,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC(),
	}
	err := g.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("writing snapshot %q: %w", key, err)
	}
	return nil
}

func (g *GormStore) Remove(ctx context.Context, key string) error {
	err := g.conn.WithContext(ctx).Delete(&snapshotRow{}, "scope_key = ?", key).Error
	if err != nil {
		return fmt.Errorf("removing snapshot %q: %w", key, err)
	}
	return nil
}

// SQLDB exposes the raw handle for migrations.
func (g *GormStore) SQLDB() (*sql.DB, error) {
	return g.conn.DB()
}

// Ping verifies the datasource is reachable.
func (g *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := g.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (g *GormStore) Close() error {
	sqlDB, err := g.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
