package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"

	"github.com/google/uuid"
)

// Store keeps the ledger in process memory. Data is lost on restart.
type Store struct {
	mu           sync.Mutex
	categories   []core.Category
	transactions []core.Transaction
}

var _ storage.Store = (*Store)(nil)

func New(categoryTitles ...string) *Store {
	s := &Store{}
	now := time.Now().UTC()
	for _, title := range dedupe(categoryTitles) {
		s.categories = append(s.categories, core.Category{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now})
	}
	return s
}

// NewFromFiles seeds categories from <base>/seed_categories.txt when present.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_categories.txt"))...)
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = s.withCategory(t)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return s.withCategory(t), nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInsert(t, nil); err != nil {
		return core.Transaction{}, err
	}
	t.Category = nil
	s.transactions = append(s.transactions, t)
	return s.withCategory(t), nil
}

func (s *Store) CreateTransactions(_ context.Context, ts []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := map[string]struct{}{}
	for _, t := range ts {
		if err := s.checkInsert(t, batch); err != nil {
			return nil, err
		}
		batch[t.ID] = struct{}{}
	}
	out := make([]core.Transaction, len(ts))
	for i, t := range ts {
		t.Category = nil
		s.transactions = append(s.transactions, t)
		out[i] = s.withCategory(t)
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.transactions {
		if t.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) FindCategoryByTitle(_ context.Context, title string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.categoryByTitle(title); ok {
		return c, nil
	}
	return core.Category{}, fmt.Errorf("category %q: %w", title, core.ErrNotFound)
}

func (s *Store) FindCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, title := range dedupe(titles) {
		if c, ok := s.categoryByTitle(title); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertCategory(c), nil
}

func (s *Store) CreateCategories(_ context.Context, cs []core.Category) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(cs))
	for i, c := range cs {
		out[i] = s.insertCategory(c)
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) insertCategory(c core.Category) core.Category {
	if existing, ok := s.categoryByTitle(c.Title); ok {
		return existing
	}
	s.categories = append(s.categories, c)
	return c
}

func (s *Store) checkInsert(t core.Transaction, batch map[string]struct{}) error {
	if _, ok := s.categoryByID(t.CategoryID); !ok {
		return fmt.Errorf("transaction %q references unknown category %s", t.Title, t.CategoryID)
	}
	if _, dup := batch[t.ID]; dup {
		return fmt.Errorf("duplicate transaction id %s", t.ID)
	}
	for _, existing := range s.transactions {
		if existing.ID == t.ID {
			return fmt.Errorf("duplicate transaction id %s", t.ID)
		}
	}
	return nil
}

func (s *Store) withCategory(t core.Transaction) core.Transaction {
	if c, ok := s.categoryByID(t.CategoryID); ok {
		t.Category = &c
	}
	return t
}

func (s *Store) categoryByID(id string) (core.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) categoryByTitle(title string) (core.Category, bool) {
	for _, c := range s.categories {
		if c.Title == title {
			return c, true
		}
	}
	return core.Category{}, false
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
