package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/internal/config"
	"Storefront/internal/kv"
	"Storefront/internal/storefront"
	"Storefront/pkg/kit"
)

func main() {
	service := "storefront"

	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, closeStore, err := openKV(ctx, cfg.Cart, log)
	if err != nil {
		log.Fatal("open cart storage", zap.String("backend", cfg.Cart.Backend), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := kit.NewCoreMetrics(reg)

	f := storefront.New(ctx, storefront.Options{
		Source:         catalog.NewHTTPSource(cfg.CatalogURL),
		KV:             store,
		Log:            log,
		Metrics:        metrics,
		SearchQuiet:    cfg.SearchQuiet,
		CartQuiet:      cfg.Cart.Quiet,
		MinQueryLength: cfg.MinQueryLength,
		CartKey:        cfg.Cart.Key,
	})
	f.Start(ctx)

	s := &storefront.Server{Facade: f, KV: store, Log: log}
	if cfg.CartRateLimit > 0 {
		s.CartLimiter = kit.NewIPRateLimiter(cfg.CartRateLimit, time.Minute)
	}

	h := storefront.NewHandler(s, kit.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
	})

	log.Info("starting",
		zap.String("catalog_url", cfg.CatalogURL),
		zap.String("cart_backend", cfg.Cart.Backend),
	)

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, f.Close, closeStore); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openKV(ctx context.Context, cfg config.CartConfig, log *zap.Logger) (kv.Store, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn("cart storage is in memory, carts do not survive a restart")
		return kv.NewMemStore(), noop, nil
	case config.BackendFile:
		return kv.NewFileStore(cfg.FilePath), noop, nil
	case config.BackendPostgres:
		db, err := kit.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := kv.NewPostgresStore(db)
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return s, func(context.Context) error { return db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown cart backend %q", cfg.Backend)
}
