package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Store backends supported for the durable snapshot store.
const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

type Config struct {
	App          AppConfig
	Store        StoreConfig
	DB           DBConfig
	Redis        RedisConfig
	Remote       RemoteConfig
	Session      SessionConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.ensureDSN(cfg.Store.Backend); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTSYNC_APP_PORT" default:"7410"`
	LogLevel     string `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the durable snapshot store backend.
type StoreConfig struct {
	Backend string `envconfig:"CARTSYNC_STORE_BACKEND" default:"sqlite"`
}

func (s StoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case StoreBackendSQLite, StoreBackendPostgres, StoreBackendRedis:
		return nil
	default:
		return fmt.Errorf("unsupported store backend %q", s.Backend)
	}
}

// Normalized returns the backend name in canonical lowercase form.
func (s StoreConfig) Normalized() string {
	return strings.ToLower(strings.TrimSpace(s.Backend))
}

type DBConfig struct {
	DSN string `envconfig:"CARTSYNC_DB_DSN"`

	MaxOpenConns    int           `envconfig:"CARTSYNC_DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"CARTSYNC_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN(backend string) error {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case StoreBackendSQLite:
		if d.DSN == "" {
			d.DSN = "file:cartsync.db?_pragma=busy_timeout(5000)"
		}
	case StoreBackendPostgres:
		if d.DSN == "" {
			return fmt.Errorf("CARTSYNC_DB_DSN is required for the postgres store backend")
		}
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RemoteConfig points the sync engine at the authoritative cart API.
type RemoteConfig struct {
	BaseURL      string        `envconfig:"CARTSYNC_REMOTE_BASE_URL" required:"true"`
	Timeout      time.Duration `envconfig:"CARTSYNC_REMOTE_TIMEOUT" default:"10s"`
	OrderTimeout time.Duration `envconfig:"CARTSYNC_REMOTE_ORDER_TIMEOUT" default:"15s"`
}

// SessionConfig carries an optional credential restored at startup.
type SessionConfig struct {
	InitialToken string `envconfig:"CARTSYNC_SESSION_TOKEN"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTSYNC_AUTO_MIGRATE" default:"true"`
}
