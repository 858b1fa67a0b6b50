package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY between
	// the batch insert transaction and concurrent reads.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := r.queries.CreateTransaction(ctx, fromCoreTransaction(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"title", t.Title,
		"type", t.Type,
		"value", t.Value.String(),
		"category_id", t.CategoryID)

	return t, nil
}

func (r *SQLiteRepository) CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	if len(ts) == 0 {
		return []core.Transaction{}, nil
	}

	err := r.inTx(ctx, func(q *Queries) error {
		for _, t := range ts {
			if err := q.CreateTransaction(ctx, fromCoreTransaction(t)); err != nil {
				return fmt.Errorf("create transaction %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transaction batch saved to SQLite", "count", len(ts))
	return ts, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categoriesToCore(rows), nil
}

func (r *SQLiteRepository) FindCategoryByTitle(ctx context.Context, title string) (core.Category, error) {
	row, err := r.queries.GetCategoryByTitle(ctx, title)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", title, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by title: %w", err)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	rows, err := r.queries.GetCategoriesByTitles(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("get categories by titles: %w", err)
	}
	return categoriesToCore(rows), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := r.queries.CreateCategory(ctx, fromCoreCategory(c)); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	stored, err := r.queries.GetCategoryByTitle(ctx, c.Title)
	if err != nil {
		return core.Category{}, fmt.Errorf("reload category %q: %w", c.Title, err)
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", stored.ID, "title", stored.Title)
	return stored.toCore(), nil
}

func (r *SQLiteRepository) CreateCategories(ctx context.Context, cs []core.Category) ([]core.Category, error) {
	if len(cs) == 0 {
		return []core.Category{}, nil
	}

	titles := make([]string, len(cs))
	var stored []Category
	err := r.inTx(ctx, func(q *Queries) error {
		for i, c := range cs {
			if err := q.CreateCategory(ctx, fromCoreCategory(c)); err != nil {
				return fmt.Errorf("create category %q: %w", c.Title, err)
			}
			titles[i] = c.Title
		}
		var err error
		stored, err = q.GetCategoriesByTitles(ctx, titles)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Category batch saved to SQLite", "count", len(stored))
	return orderCategories(categoriesToCore(stored), titles), nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t TransactionWithCategory) toCore() core.Transaction {
	return core.Transaction{
		ID:         t.ID,
		Title:      t.Title,
		Type:       core.TransactionType(t.Type),
		Value:      t.Value,
		CategoryID: t.CategoryID,
		Category: &core.Category{
			ID:        t.CategoryID,
			Title:     t.CategoryTitle,
			CreatedAt: t.CategoryCreatedAt,
			UpdatedAt: t.CategoryUpdatedAt,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (c Category) toCore() core.Category {
	return core.Category{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func categoriesToCore(rows []Category) []core.Category {
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:         t.ID,
		Title:      t.Title,
		Type:       string(t.Type),
		Value:      t.Value,
		CategoryID: t.CategoryID,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
	}
}

func fromCoreCategory(c core.Category) Category {
	return Category{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC()}
}

// orderCategories returns cs in the order of titles.
func orderCategories(cs []core.Category, titles []string) []core.Category {
	byTitle := make(map[string]core.Category, len(cs))
	for _, c := range cs {
		byTitle[c.Title] = c
	}
	out := make([]core.Category, 0, len(cs))
	for _, t := range titles {
		if c, ok := byTitle[t]; ok {
			out = append(out, c)
			delete(byTitle, t)
		}
	}
	return out
}
