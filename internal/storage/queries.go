package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const selectTransactionWithCategory = `SELECT t.id, t.title, t.type, t.value, t.category_id, t.created_at, t.updated_at,
       c.title, c.created_at, c.updated_at
FROM transactions t
JOIN categories c ON c.id = t.category_id`

const listTransactions = selectTransactionWithCategory + `
ORDER BY t.created_at, t.rowid`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionWithCategory, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionWithCategory
	for rows.Next() {
		i, err := scanTransactionWithCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = selectTransactionWithCategory + `
WHERE t.id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionWithCategory, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	return scanTransactionWithCategory(row)
}

const createTransaction = `INSERT INTO transactions (id, title, type, value, category_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.Title,
		arg.Type,
		arg.Value,
		arg.CategoryID,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `SELECT id, title, created_at, updated_at FROM categories ORDER BY title`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	return q.queryCategories(ctx, listCategories)
}

const getCategoryByTitle = `SELECT id, title, created_at, updated_at FROM categories WHERE title = ?`

func (q *Queries) GetCategoryByTitle(ctx context.Context, title string) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByTitle, title)
	var i Category
	err := row.Scan(&i.ID, &i.Title, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getCategoriesByTitles = `SELECT id, title, created_at, updated_at FROM categories WHERE title IN (/*SLICE:titles*/?)`

func (q *Queries) GetCategoriesByTitles(ctx context.Context, titles []string) ([]Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(titles))
	for i, t := range titles {
		args[i] = t
	}
	query := strings.Replace(getCategoriesByTitles, "/*SLICE:titles*/?", strings.Repeat(",?", len(titles))[1:], 1)
	return q.queryCategories(ctx, query, args...)
}

const createCategory = `INSERT INTO categories (id, title, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (title) DO NOTHING`

func (q *Queries) CreateCategory(ctx context.Context, arg Category) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.Title, arg.CreatedAt, arg.UpdatedAt)
	return err
}

func (q *Queries) queryCategories(ctx context.Context, query string, args ...interface{}) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Title, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransactionWithCategory(row rowScanner) (TransactionWithCategory, error) {
	var i TransactionWithCategory
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Type,
		&i.Value,
		&i.CategoryID,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CategoryTitle,
		&i.CategoryCreatedAt,
		&i.CategoryUpdatedAt,
	)
	return i, err
}
