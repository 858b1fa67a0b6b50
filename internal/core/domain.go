package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

func init() {
	// Values travel as JSON numbers, the way API clients send them.
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	TransactionType string

	Category struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Transaction struct {
		ID         string          `json:"id"`
		Title      string          `json:"title"`
		Type       TransactionType `json:"type"`
		Value      decimal.Decimal `json:"value"`
		CategoryID string          `json:"category_id"`
		Category   *Category       `json:"category,omitempty"`
		CreatedAt  time.Time       `json:"created_at"`
		UpdatedAt  time.Time       `json:"updated_at"`
	}

	// NewTransaction is the caller-supplied part of a transaction; the
	// category is referenced by title and resolved on creation.
	NewTransaction struct {
		Title    string          `json:"title"`
		Type     TransactionType `json:"type"`
		Value    decimal.Decimal `json:"value"`
		Category string          `json:"category"`
	}
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrInvalidType       = errors.New("type must be income or outcome")
	ErrInvalidValue      = errors.New("value must be a non-negative number")
	ErrEmptyTitle        = errors.New("empty title")
	ErrEmptyCategory     = errors.New("empty category")
	ErrTitleTooLong      = errors.New("title too long (max 200 characters)")
)

// ParseTransactionType accepts the two ledger directions, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Outcome:
		return Outcome, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Outcome
}

const maxTitleLength = 200

func (n NewTransaction) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(n.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if n.Value.IsNegative() {
		return ErrInvalidValue
	}
	if strings.TrimSpace(n.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
