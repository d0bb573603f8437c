package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StoreFront/internal/auth"
	"StoreFront/internal/catalog"
	"StoreFront/internal/config"
	"StoreFront/internal/gateway"
	"StoreFront/internal/kv"
	"StoreFront/pkg/kit"
)

const service = "storefront"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	metrics := kit.NewMetrics(reg)

	raw, closer, err := kv.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	store := kv.Instrument(raw, cfg.Storage.Backend, metrics)

	users, closeUsers, err := openUsers(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer func() { _ = closeUsers() }()

	feed, closeFeed, err := openFeed(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFeed() }()

	cs := catalog.NewStore(feed, catalog.WithLogger(log), catalog.WithMetrics(metrics))
	if _, err := cs.Load(ctx); err != nil {
		// A failed load leaves an empty catalog and /readyz failing; the
		// service still starts.
		log.Error("initial catalog load failed", zap.Error(err))
	}

	if cfg.WatchFile() {
		go func() {
			if err := catalog.WatchFile(ctx, cfg.Catalog.Source, cs); err != nil {
				log.Error("catalog watcher stopped", zap.Error(err))
			}
		}()
	}

	h, err := gateway.NewHandler(
		gateway.Deps{
			Store:         store,
			Catalog:       cs,
			Users:         users,
			JWT:           auth.NewTokenMaker(cfg.Auth.JWTSecret),
			TokenTTL:      cfg.Auth.TokenTTL,
			LoginLimit:    cfg.Auth.LoginLimit,
			RegisterLimit: cfg.Auth.RegisterLimit,
		},
		gateway.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       reg,
			Metrics:        metrics,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsToken:   cfg.Metrics.Token,
		},
	)
	if err != nil {
		return fmt.Errorf("init gateway handler: %w", err)
	}

	log.Info("storefront configured",
		zap.String("env", cfg.Env),
		zap.String("kv_backend", cfg.Storage.Backend),
		zap.String("catalog", feed.Source()),
	)
	return kit.RunHTTPServer(ctx, ":"+cfg.Port, h, log)
}

// openUsers keeps accounts in Postgres when that is the storage backend so
// email uniqueness holds across replicas; otherwise they live in the kv
// store.
func openUsers(ctx context.Context, cfg *config.Config, store kv.Store) (auth.UserStore, func() error, error) {
	if cfg.Storage.Backend != kv.BackendPostgres {
		return auth.NewKVUserStore(gateway.UsersStore(store)), func() error { return nil }, nil
	}

	db, err := sql.Open("pgx", cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open users db: %w", err)
	}
	users := auth.NewPostgresStore(db)
	if err := users.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate users: %w", err)
	}
	return users, db.Close, nil
}

func openFeed(cfg *config.Config) (catalog.Feed, func() error, error) {
	if cfg.Catalog.Source != config.CatalogPostgres {
		return catalog.FeedFor(cfg.Catalog.Source), func() error { return nil }, nil
	}

	if cfg.Storage.DatabaseURL == "" {
		return nil, nil, errors.New("postgres catalog needs DATABASE_URL")
	}
	db, err := sql.Open("pgx", cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog db: %w", err)
	}
	return catalog.NewPostgresFeed(db), db.Close, nil
}
