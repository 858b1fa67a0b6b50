package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()
	repo, err := NewRepository(ctx, url)
	require.NoError(t, err)
	_, err = repo.pool.Exec(ctx, `TRUNCATE transactions, categories`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host/db", migrateURL("postgres://u:p@host/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("postgresql://host/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("pgx5://host/db"))
}

func TestRepository_TransactionLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	cat, err := repo.CreateCategory(ctx, core.Category{ID: uuid.NewString(), Title: "Food", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	again, err := repo.CreateCategory(ctx, core.Category{ID: uuid.NewString(), Title: "Food", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, cat.ID, again.ID)

	tx := core.Transaction{
		ID: uuid.NewString(), Title: "Groceries", Type: core.Outcome,
		Value: decimal.RequireFromString("12.50"), CategoryID: cat.ID, CreatedAt: now, UpdatedAt: now,
	}
	_, err = repo.CreateTransaction(ctx, tx)
	require.NoError(t, err)

	got, err := repo.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, tx.Value.Equal(got.Value))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Food", got.Category.Title)

	require.NoError(t, repo.DeleteTransaction(ctx, tx.ID))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, tx.ID), core.ErrNotFound)
}

func TestRepository_BatchIsAtomic(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cats, err := repo.CreateCategories(ctx, []core.Category{{ID: uuid.NewString(), Title: "Rent", CreatedAt: now, UpdatedAt: now}})
	require.NoError(t, err)
	require.Len(t, cats, 1)

	id := uuid.NewString()
	batch := []core.Transaction{
		{ID: id, Title: "a", Type: core.Outcome, Value: decimal.NewFromInt(1), CategoryID: cats[0].ID, CreatedAt: now, UpdatedAt: now},
		{ID: id, Title: "b", Type: core.Outcome, Value: decimal.NewFromInt(2), CategoryID: cats[0].ID, CreatedAt: now, UpdatedAt: now},
	}
	_, err = repo.CreateTransactions(ctx, batch)
	require.Error(t, err)

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
