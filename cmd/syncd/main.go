package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pharmakart/cartsync/api/controllers"
	"github.com/pharmakart/cartsync/api/routes"
	"github.com/pharmakart/cartsync/internal/cart"
	"github.com/pharmakart/cartsync/internal/localstore"
	"github.com/pharmakart/cartsync/internal/orders"
	"github.com/pharmakart/cartsync/internal/remote"
	"github.com/pharmakart/cartsync/internal/session"
	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/metrics"
	"github.com/pharmakart/cartsync/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	store, pinger, closeStore, err := buildLocalStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap local store", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logg.Error(ctx, "error closing local store", err)
		}
	}()

	remoteClient, err := remote.NewClient(cfg.Remote, logg)
	if err != nil {
		logg.Error(ctx, "failed to create remote client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	engine, err := cart.NewEngine(cart.Params{
		Local:   store,
		Remote:  remoteClient,
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cart engine", err)
		os.Exit(1)
	}

	coordinator, err := orders.NewCoordinator(orders.Params{
		Engine:  engine,
		Backend: remoteClient,
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order coordinator", err)
		os.Exit(1)
	}

	sessions := session.NewManager()

	if err := bindInitialSession(ctx, cfg, logg, sessions, engine); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "initial session hydration failed, starting as guest")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"store": cfg.Store.Normalized(),
	})
	logg.Info(ctx, "starting cart sync daemon")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Store:    pinger,
			Engine:   engine,
			Orders:   coordinator,
			Sessions: sessions,
			Registry: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "cart sync daemon stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildLocalStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cart.LocalStore, controllers.Pinger, func() error, error) {
	if cfg.Store.Normalized() == config.StoreBackendRedis {
		redisStore, err := localstore.NewRedisStore(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, nil, err
		}
		return redisStore, redisStore, redisStore.Close, nil
	}

	gormStore, err := localstore.NewGormStore(ctx, cfg.Store.Normalized(), cfg.DB, logg)
	if err != nil {
		return nil, nil, nil, err
	}

	sqlDB, err := gormStore.SQLDB()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, sqlDB); err != nil {
		return nil, nil, nil, err
	}

	return gormStore, gormStore, gormStore.Close, nil
}

// bindInitialSession restores a stored credential from config and hydrates the
// cart for the resulting scope.
func bindInitialSession(ctx context.Context, cfg *config.Config, logg *logger.Logger, sessions *session.Manager, engine *cart.Engine) error {
	if cfg.Session.InitialToken == "" {
		return engine.Load(ctx)
	}

	binding, err := sessions.BindToken(cfg.Session.InitialToken)
	if err != nil {
		if loadErr := engine.Load(ctx); loadErr != nil {
			logg.Error(ctx, "guest cart hydration failed", loadErr)
		}
		return err
	}
	return engine.MergeOnSignIn(ctx, binding)
}
