package sheets

import (
	"context"

	"saldo/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends exported transactions to an external ledger.
	LedgerWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}
)
