package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Transaction struct {
	ID         string
	Title      string
	Type       string
	Value      decimal.Decimal
	CategoryID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TransactionWithCategory is a transaction row joined with its category.
type TransactionWithCategory struct {
	Transaction
	CategoryTitle     string
	CategoryCreatedAt time.Time
	CategoryUpdatedAt time.Time
}
