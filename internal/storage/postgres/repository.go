// Package postgres implements the ledger store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(ctx context.Context, connURL string) (*Repository, error) {
	if err := RunMigrations(connURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const selectTransactions = `SELECT t.id::text, t.title, t.type, t.value::text, t.category_id::text, t.created_at, t.updated_at,
       c.title, c.created_at, c.updated_at
FROM transactions t
JOIN categories c ON c.id = t.category_id`

func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx, selectTransactions+` ORDER BY t.created_at, t.seq`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx, selectTransactions+` WHERE t.id::text = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

const insertTransaction = `INSERT INTO transactions (id, title, type, value, category_id, created_at, updated_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	_, err := r.pool.Exec(ctx, insertTransaction,
		t.ID, t.Title, string(t.Type), t.Value.String(), t.CategoryID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to Postgres", "id", t.ID, "title", t.Title, "type", t.Type, "value", t.Value.String())
	return t, nil
}

func (r *Repository) CreateTransactions(ctx context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	if len(ts) == 0 {
		return []core.Transaction{}, nil
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range ts {
			batch.Queue(insertTransaction, t.ID, t.Title, string(t.Type), t.Value.String(), t.CategoryID, t.CreatedAt, t.UpdatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction batch: %w", err)
	}
	slog.InfoContext(ctx, "Transaction batch saved to Postgres", "count", len(ts))
	return ts, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from Postgres", "id", id)
	return nil
}

const selectCategories = `SELECT id::text, title, created_at, updated_at FROM categories`

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	return r.queryCategories(ctx, selectCategories+` ORDER BY title`)
}

func (r *Repository) FindCategoryByTitle(ctx context.Context, title string) (core.Category, error) {
	var c core.Category
	err := r.pool.QueryRow(ctx, selectCategories+` WHERE title = $1`, title).
		Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", title, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by title: %w", err)
	}
	return c, nil
}

func (r *Repository) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return []core.Category{}, nil
	}
	return r.queryCategories(ctx, selectCategories+` WHERE title = ANY($1)`, titles)
}

const insertCategory = `INSERT INTO categories (id, title, created_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (title) DO NOTHING`

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if _, err := r.pool.Exec(ctx, insertCategory, c.ID, c.Title, c.CreatedAt, c.UpdatedAt); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	stored, err := r.FindCategoryByTitle(ctx, c.Title)
	if err != nil {
		return core.Category{}, fmt.Errorf("reload category: %w", err)
	}
	slog.InfoContext(ctx, "Category saved to Postgres", "id", stored.ID, "title", stored.Title)
	return stored, nil
}

func (r *Repository) CreateCategories(ctx context.Context, cs []core.Category) ([]core.Category, error) {
	if len(cs) == 0 {
		return []core.Category{}, nil
	}
	titles := make([]string, len(cs))
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, c := range cs {
			batch.Queue(insertCategory, c.ID, c.Title, c.CreatedAt, c.UpdatedAt)
			titles[i] = c.Title
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return nil, fmt.Errorf("create category batch: %w", err)
	}
	stored, err := r.FindCategoriesByTitles(ctx, titles)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Category batch saved to Postgres", "count", len(stored))
	return stored, nil
}

func (r *Repository) queryCategories(ctx context.Context, sql string, args ...any) ([]core.Category, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ      string
		value    string
		catTitle string
		catCAt   time.Time
		catUAt   time.Time
	)
	err := row.Scan(&t.ID, &t.Title, &typ, &value, &t.CategoryID, &t.CreatedAt, &t.UpdatedAt, &catTitle, &catCAt, &catUAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	if t.Value, err = decimal.NewFromString(value); err != nil {
		return core.Transaction{}, fmt.Errorf("parse value %q: %w", value, err)
	}
	t.Category = &core.Category{ID: t.CategoryID, Title: catTitle, CreatedAt: catCAt, UpdatedAt: catUAt}
	return t, nil
}
