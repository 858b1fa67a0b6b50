package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func category(id, title string) core.Category {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	return core.Category{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
}

func transaction(id, title string, typ core.TransactionType, value string, categoryID string, at time.Time) core.Transaction {
	return core.Transaction{
		ID:         id,
		Title:      title,
		Type:       typ,
		Value:      decimal.RequireFromString(value),
		CategoryID: categoryID,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(context.Background()))
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.FindCategoryByTitle(ctx, "Food")
	assert.ErrorIs(t, err, core.ErrNotFound)

	food, err := repo.CreateCategory(ctx, category("c1", "Food"))
	require.NoError(t, err)
	assert.Equal(t, "c1", food.ID)

	// Same title with a different id keeps the original row.
	again, err := repo.CreateCategory(ctx, category("c2", "Food"))
	require.NoError(t, err)
	assert.Equal(t, "c1", again.ID)

	found, err := repo.FindCategoryByTitle(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, "Food", found.Title)
	assert.True(t, found.CreatedAt.Equal(food.CreatedAt))

	created, err := repo.CreateCategories(ctx, []core.Category{category("c3", "Rent"), category("c4", "Bills")})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Rent", created[0].Title)
	assert.Equal(t, "Bills", created[1].Title)

	some, err := repo.FindCategoriesByTitles(ctx, []string{"Rent", "Food", "Missing"})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	none, err := repo.FindCategoriesByTitles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Bills", "Food", "Rent"}, []string{all[0].Title, all[1].Title, all[2].Title})
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateCategory(ctx, category("c1", "Job"))
	require.NoError(t, err)

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = repo.CreateTransaction(ctx, transaction("t1", "Salary", core.Income, "1000.50", "c1", t0))
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, transaction("t2", "Bonus", core.Income, "20", "c1", t0.Add(time.Minute)))
	require.NoError(t, err)

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "1000.5", list[0].Value.String())
	require.NotNil(t, list[0].Category)
	assert.Equal(t, "Job", list[0].Category.Title)
	assert.True(t, list[0].CreatedAt.Equal(t0))

	got, err := repo.GetTransaction(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "Bonus", got.Title)
	assert.Equal(t, core.Income, got.Type)

	require.NoError(t, repo.DeleteTransaction(ctx, "t1"))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, "t1"), core.ErrNotFound)
	_, err = repo.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateTransactionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateCategory(ctx, category("c1", "Food"))
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	batch := []core.Transaction{
		transaction("t1", "Lunch", core.Outcome, "12", "c1", at),
		transaction("t1", "Duplicate id", core.Outcome, "5", "c1", at),
	}
	_, err = repo.CreateTransactions(ctx, batch)
	require.Error(t, err)

	list, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "failed batch must not leave rows behind")

	batch[1].ID = "t2"
	saved, err := repo.CreateTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	list, err = repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"t1", "t2"}, []string{list[0].ID, list[1].ID}, "batch keeps insertion order")
}

func TestTransactionRequiresExistingCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateTransaction(ctx, transaction("t1", "Orphan", core.Income, "1", "missing", time.Now()))
	assert.Error(t, err)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	dsn := sqliteDSN(filepath.Join(t.TempDir(), "ledger.db"))

	first, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	again, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
