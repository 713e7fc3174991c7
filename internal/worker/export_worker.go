package worker

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/sheets"
)

// TransactionSource pages through the backend transaction ledger.
type TransactionSource interface {
	Transactions(ctx context.Context, f api.TransactionFilter) (api.Page[core.Transaction], error)
}

// CheckpointStore remembers the last transaction exported so restarts
// do not re-export the whole ledger.
type CheckpointStore interface {
	ExportCheckpoint(ctx context.Context) (int64, error)
	SetExportCheckpoint(ctx context.Context, lastTransactionID int64) error
}

// ExportWorker copies new transactions from the backend into an external
// ledger (Google Sheets in production). It pages through the backend,
// skips everything at or below the stored checkpoint, and advances the
// checkpoint once a pass completes.
type ExportWorker struct {
	source    TransactionSource
	store     CheckpointStore
	writer    sheets.LedgerWriter
	batchSize int
}

func NewExportWorker(source TransactionSource, store CheckpointStore, writer sheets.LedgerWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		source:    source,
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// RunOnce performs a single export pass. A failed append aborts the pass;
// the checkpoint still advances to the highest ID exported so far, so the
// next pass resumes instead of duplicating rows.
func (w *ExportWorker) RunOnce(ctx context.Context) error {
	checkpoint, err := w.store.ExportCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("load export checkpoint: %w", err)
	}

	exported := 0
	highest := checkpoint

	for page := 1; ; page++ {
		result, err := w.source.Transactions(ctx, api.TransactionFilter{
			Page:    page,
			PerPage: w.batchSize,
		})
		if err != nil {
			w.saveCheckpoint(ctx, checkpoint, highest)
			return fmt.Errorf("list transactions page %d: %w", page, err)
		}

		for _, tx := range result.Data {
			if tx.ID <= checkpoint {
				continue
			}

			ref, err := w.writer.Append(ctx, tx)
			if err != nil {
				w.saveCheckpoint(ctx, checkpoint, highest)
				return fmt.Errorf("append transaction %d: %w", tx.ID, err)
			}

			exported++
			if tx.ID > highest {
				highest = tx.ID
			}

			slog.DebugContext(ctx, "Exported transaction",
				"id", tx.ID,
				"row_ref", ref)
		}

		if page >= result.LastPage || len(result.Data) == 0 {
			break
		}
	}

	w.saveCheckpoint(ctx, checkpoint, highest)

	if exported > 0 {
		slog.InfoContext(ctx, "Export pass completed",
			"exported", exported,
			"checkpoint", highest)
	}

	return nil
}

func (w *ExportWorker) saveCheckpoint(ctx context.Context, old, highest int64) {
	if highest <= old {
		return
	}
	if err := w.store.SetExportCheckpoint(ctx, highest); err != nil {
		slog.ErrorContext(ctx, "Failed to save export checkpoint",
			"checkpoint", highest,
			"error", err)
	}
}
