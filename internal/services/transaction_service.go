package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/storage"

	"github.com/google/uuid"
)

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id string) error
	PublishTransactionDeleted(ctx context.Context, id string) error
}

// Listing is the GET /transactions payload.
type Listing struct {
	Transactions []core.Transaction `json:"transactions"`
	Balance      core.Balance       `json:"balance"`
}

// TransactionService orchestrates ledger writes against the store and
// announces them through the optional publisher.
type TransactionService struct {
	store     storage.Store
	publisher EventPublisher

	// categories is keyed by title; categories are never deleted.
	categories cache.Cache[core.Category]

	// mu serialises writes so the balance check and the insert that
	// depends on it are not interleaved with other writes in this process.
	mu sync.Mutex

	now   func() time.Time
	newID func() string
}

type Option func(*TransactionService)

func WithPublisher(p EventPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

func WithCategoryCache(c cache.Cache[core.Category]) Option {
	return func(s *TransactionService) { s.categories = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *TransactionService) { s.newID = newID }
}

func NewTransactionService(store storage.Store, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:      store,
		categories: cache.NewLRU[core.Category](256, 10*time.Minute),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) List(ctx context.Context) (Listing, error) {
	ts, err := s.store.ListTransactions(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("list transactions: %w", err)
	}
	return Listing{Transactions: ts, Balance: core.ComputeBalance(ts)}, nil
}

func (s *TransactionService) Balance(ctx context.Context) (core.Balance, error) {
	ts, err := s.store.ListTransactions(ctx)
	if err != nil {
		return core.Balance{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.ComputeBalance(ts), nil
}

func (s *TransactionService) ListCategories(ctx context.Context) ([]core.Category, error) {
	cs, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cs, nil
}

// Create records a transaction, refusing outcomes larger than the current
// total. The category is looked up by title and created when missing.
func (s *TransactionService) Create(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	created, err := s.create(ctx, in)
	s.mu.Unlock()
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishCreated(ctx, created.ID)
	return created, nil
}

func (s *TransactionService) create(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	balance, err := s.Balance(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	if in.Type == core.Outcome && !balance.Covers(in.Value) {
		slog.WarnContext(ctx, "Transaction rejected",
			"title", in.Title,
			"value", in.Value.String(),
			"total", balance.Total.String())
		return core.Transaction{}, core.ErrInsufficientFunds
	}

	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return core.Transaction{}, err
	}

	now := s.now()
	t := core.Transaction{
		ID:         s.newID(),
		Title:      in.Title,
		Type:       in.Type,
		Value:      in.Value,
		CategoryID: category.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if saved.Category == nil {
		saved.Category = &category
	}
	return saved, nil
}

func (s *TransactionService) resolveCategory(ctx context.Context, title string) (core.Category, error) {
	if c, ok := s.categories.Get(title); ok {
		return c, nil
	}
	c, err := s.store.FindCategoryByTitle(ctx, title)
	if err == nil {
		s.categories.Set(title, c)
		return c, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}

	now := s.now()
	c, err = s.store.CreateCategory(ctx, core.Category{ID: s.newID(), Title: title, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.categories.Set(title, c)
	slog.InfoContext(ctx, "Category created", "id", c.ID, "title", c.Title)
	return c, nil
}

// Delete removes a transaction by id; unknown ids yield core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	err := s.store.DeleteTransaction(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete event", "id", id, "error", err)
		}
	}
	return nil
}

// publishCreated never fails the caller: the row is already persisted and
// the mirror catches up on its next resync.
func (s *TransactionService) publishCreated(ctx context.Context, ids ...string) {
	if s.publisher == nil {
		return
	}
	for _, id := range ids {
		if err := s.publisher.PublishTransactionCreated(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish create event", "id", id, "error", err)
		}
	}
}
