package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace   = "cartsync"
	snapshotPrefix = "snapshot"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// RedisStore keeps snapshots in Redis for hosted deployments of the sync
// engine where the "local" side lives next to the storefront BFF.
type RedisStore struct {
	store cmdable
	raw   *redis.Client
}

// NewRedisStore bootstraps a Redis-backed snapshot store and verifies
// connectivity.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*RedisStore, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis snapshot store connection established")
	}
	return &RedisStore{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if r.store == nil {
		return nil, false, errors.New("redis store not initialized")
	}
	value, err := r.store.Get(ctx, snapshotKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading snapshot %q: %w", key, err)
	}
	return []byte(value), true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, payload []byte) error {
	if r.store == nil {
		return errors.New("redis store not initialized")
	}
	if err := r.store.Set(ctx, snapshotKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("writing snapshot %q: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, key string) error {
	if r.store == nil {
		return errors.New("redis store not initialized")
	}
	if err := r.store.Del(ctx, snapshotKey(key)).Err(); err != nil {
		return fmt.Errorf("removing snapshot %q: %w", key, err)
	}
	return nil
}

// Ping verifies the datasource is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r.store == nil {
		return errors.New("redis store not initialized")
	}
	return r.store.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	if r.raw == nil {
		return nil
	}
	return r.raw.Close()
}

func snapshotKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", keyNamespace, snapshotPrefix, key)
}
