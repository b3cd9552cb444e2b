package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Storefront/internal/catalog"
	"Storefront/pkg/kit"
)

func main() {
	service := "catalog"
	log := kit.NewLogger(service, getenv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8082")
	metricsToken := os.Getenv("METRICS_TOKEN")

	s := &catalog.Server{Store: catalog.NewStore(), Log: log}

	var db *sql.DB
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		db, err = kit.OpenPostgres(context.Background(), dsn)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		s.Store = catalog.NewPostgresStore(db)
		log.Info("serving products from postgres")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := catalog.NewHandler(s, kit.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: metricsToken != "",
		MetricsToken:   metricsToken,
	})

	var hooks []func(context.Context) error
	if db != nil {
		hooks = append(hooks, func(context.Context) error { return db.Close() })
	}

	if err := kit.RunHTTPServer(":"+port, h, log, hooks...); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
