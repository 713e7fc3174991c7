package main

import (
	"context"
	"os"
	"time"

	"saldo/internal/api"
	"saldo/internal/cli"
	"saldo/internal/sheets"
	gsheet "saldo/internal/sheets/google"
	"saldo/internal/sheets/memory"
	"saldo/internal/storage"
	"saldo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("saldo-worker")

	logger.Info("Starting saldo-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	token, err := resolveToken(context.Background(), store)
	if err != nil {
		logger.Error("Failed to load persisted session", "error", err)
	}
	if token == "" {
		logger.Warn("No API token available, export requests will be unauthenticated")
	}
	client := api.NewClient(cfg.APIBaseURL, api.WithToken(token))

	// Ledger writer: Google Sheets when configured, in-memory otherwise.
	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		gc, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer = gc
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Info("Google Sheets disabled - exporting to memory only")
	}

	exporter := worker.NewExportWorker(client, store, writer, cfg.ExportBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Startup pass catches up on anything missed while the worker was down.
	if err := exporter.RunOnce(ctx); err != nil {
		logger.Error("Startup export failed", "error", err)
	}

	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exporter.RunOnce(ctx); err != nil {
					logger.Error("Periodic export failed", "error", err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// resolveToken prefers the API_TOKEN override, falling back to the token a
// saldo login persisted in the local database.
func resolveToken(ctx context.Context, store *storage.SQLiteRepository) (string, error) {
	if t := os.Getenv("API_TOKEN"); t != "" {
		return t, nil
	}
	t, _, ok, err := store.LoadSession(ctx)
	if err != nil || !ok {
		return "", err
	}
	return t, nil
}
