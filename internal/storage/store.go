package storage

import (
	"context"

	"ledger/internal/core"
)

// Store is the persistence port used by the ledger services. Lookups that
// find nothing return core.ErrNotFound.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// CreateTransactions persists the whole batch or nothing.
	CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]core.Category, error)
	FindCategoryByTitle(ctx context.Context, title string) (core.Category, error)
	FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)
	// CreateCategory is idempotent on title and returns the stored row.
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	CreateCategories(ctx context.Context, cs []core.Category) ([]core.Category, error)

	Ping(ctx context.Context) error
	Close() error
}
