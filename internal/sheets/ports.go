package sheets

import (
	"context"

	"ledger/internal/core"
)

// TransactionMirror is an outbound copy of the ledger kept for people who
// read it outside the API. It is eventually consistent with the store.
type TransactionMirror interface {
	Append(ctx context.Context, t core.Transaction) error
	// Remove is a no-op for ids the mirror does not hold.
	Remove(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, ts []core.Transaction) error
}
