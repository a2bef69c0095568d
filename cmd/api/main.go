package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/backup"
	"github.com/Valerijkk/defect-tracker-lite/internal/cache"
	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/db"
	httpx "github.com/Valerijkk/defect-tracker-lite/internal/http"
	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
	"github.com/Valerijkk/defect-tracker-lite/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	rootCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// tracing is opt-in: only when a collector endpoint is configured
	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(rootCtx, "defect-tracker", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(3 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	{
		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}

		if err := db.EnsureDefaultUsers(ctx, postgres.NewUsersRepo(pool, prom), cfg); err != nil {
			log.Error("user seed failed", "err", err)
			os.Exit(1)
		}
	}

	// summary cache: redis when configured, in-process TTL map otherwise
	var summary cache.SummaryCache

	if cfg.RedisAddr != "" {
		rds := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      30 * time.Second,
		})

		ctx, cancel := config.WithTimeout(2 * time.Second)
		err := rds.Ping(ctx)
		cancel()

		if err != nil {
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}

		defer rds.Close()
		summary = rds
	} else {
		summary = cache.NewMemory(30 * time.Second)
	}

	// periodic state snapshots
	exporter := backup.NewExporter(cfg.BackupDir, cfg.BackupInterval, backup.NewPgSource(pool), prom, log)
	go exporter.Run(rootCtx)

	router, err := httpx.NewRouter(log, pool, cfg, summary, prom)

	if err != nil {
		log.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	stopWorkers()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
