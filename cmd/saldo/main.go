package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/api"
	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/query"
	"saldo/internal/services"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("saldo")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	client := api.NewClient(cfg.APIBaseURL)
	cache := query.NewCache(
		query.WithFreshness(cfg.CacheFreshness),
		query.WithMaxEntries(cfg.CacheMaxEntries),
	)
	cache.StartCleanup(time.Minute)
	defer cache.Stop()

	ledger := services.NewLedger(client, cache, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ok, err := ledger.RestoreSession(ctx); err != nil {
		logger.Warn("Failed to restore session", "error", err)
	} else if ok {
		logger.Info("Session restored")
	}

	// Optional change-event consumer: without it the cache falls back to
	// freshness-based revalidation only.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		invalidator := worker.NewInvalidationWorker(cache)
		go func() {
			if err := amqpClient.ConsumeChangeEvents(ctx, invalidator.HandleChangeEvent); err != nil {
				if err != context.Canceled {
					logger.Error("Change event consumption failed", "error", err)
				}
			}
		}()
		logger.Info("Change event consumer started", "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	})

	logger.Info("Starting saldo server", "port", cfg.Port, "backend", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
