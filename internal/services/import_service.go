package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"ledger/internal/core"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var ErrMalformedCSV = errors.New("malformed csv")

type ImportOptions struct {
	// EnforceBalance rejects outcome rows that the running balance, starting
	// from the stored total, cannot cover.
	EnforceBalance bool
}

// RowError explains why a line of the import file produced no transaction.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

type ImportReport struct {
	Transactions []core.Transaction `json:"transactions"`
	Skipped      []RowError         `json:"skipped"`
	Rejected     []RowError         `json:"rejected"`
}

// ImportService bulk-loads transactions from CSV. It shares the write lock,
// store and publisher of the TransactionService it is built from.
type ImportService struct {
	txs *TransactionService
}

func NewImportService(txs *TransactionService) *ImportService {
	return &ImportService{txs: txs}
}

func (s *ImportService) ImportFile(ctx context.Context, path string, opts ImportOptions) (ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, opts)
}

type pendingRow struct {
	line     int
	title    string
	typ      core.TransactionType
	value    decimal.Decimal
	category string
}

// Import reads title,type,value,category rows (after a header line) and
// persists one transaction per usable row in a single batch, creating the
// categories that do not exist yet.
func (s *ImportService) Import(ctx context.Context, in io.Reader, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{Transactions: []core.Transaction{}, Skipped: []RowError{}, Rejected: []RowError{}}

	rows, lines, err := readRows(in)
	if err != nil {
		return report, err
	}

	pending := make([]pendingRow, 0, len(rows))
	for i, row := range rows {
		line := lines[i]
		if field := missingField(row); field != "" {
			report.Skipped = append(report.Skipped, RowError{Line: line, Reason: "missing " + field})
			continue
		}
		typ, err := core.ParseTransactionType(row.Type)
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Reason: fmt.Sprintf("invalid type %q", row.Type)})
			continue
		}
		value, err := core.ParseValue(row.Value)
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Reason: fmt.Sprintf("invalid value %q", row.Value)})
			continue
		}
		pending = append(pending, pendingRow{line: line, title: row.Title, typ: typ, value: value, category: row.Category})
	}

	s.txs.mu.Lock()
	created, rejected, err := s.persist(ctx, pending, opts)
	s.txs.mu.Unlock()
	if err != nil {
		return report, err
	}
	report.Rejected = append(report.Rejected, rejected...)
	report.Transactions = created

	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	s.txs.publishCreated(ctx, ids...)

	slog.InfoContext(ctx, "Import completed",
		"imported", len(report.Transactions),
		"skipped", len(report.Skipped),
		"rejected", len(report.Rejected))
	return report, nil
}

func (s *ImportService) persist(ctx context.Context, pending []pendingRow, opts ImportOptions) ([]core.Transaction, []RowError, error) {
	var rejected []RowError
	if opts.EnforceBalance {
		var err error
		if pending, rejected, err = s.applyRunningBalance(ctx, pending); err != nil {
			return nil, nil, err
		}
	}
	if len(pending) == 0 {
		return []core.Transaction{}, rejected, nil
	}

	categories, err := s.ensureCategories(ctx, distinctCategories(pending))
	if err != nil {
		return nil, nil, err
	}

	now := s.txs.now()
	batch := make([]core.Transaction, 0, len(pending))
	for _, p := range pending {
		c := categories[p.category]
		batch = append(batch, core.Transaction{
			ID:         s.txs.newID(),
			Title:      p.title,
			Type:       p.typ,
			Value:      p.value,
			CategoryID: c.ID,
			Category:   &c,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	saved, err := s.txs.store.CreateTransactions(ctx, batch)
	if err != nil {
		return nil, nil, fmt.Errorf("save imported transactions: %w", err)
	}
	for i := range saved {
		if saved[i].Category == nil {
			c := categories[pending[i].category]
			saved[i].Category = &c
		}
	}
	return saved, rejected, nil
}

func (s *ImportService) applyRunningBalance(ctx context.Context, pending []pendingRow) ([]pendingRow, []RowError, error) {
	balance, err := s.txs.Balance(ctx)
	if err != nil {
		return nil, nil, err
	}
	var (
		kept     = pending[:0:0]
		rejected []RowError
	)
	for _, p := range pending {
		if p.typ == core.Outcome && !balance.Covers(p.value) {
			rejected = append(rejected, RowError{Line: p.line, Reason: core.ErrInsufficientFunds.Error()})
			continue
		}
		balance = balance.Apply(core.Transaction{Type: p.typ, Value: p.value})
		kept = append(kept, p)
	}
	return kept, rejected, nil
}

// ensureCategories returns a title-indexed set holding every requested
// category, creating only those missing from the store.
func (s *ImportService) ensureCategories(ctx context.Context, titles []string) (map[string]core.Category, error) {
	existing, err := s.txs.store.FindCategoriesByTitles(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	byTitle := make(map[string]core.Category, len(titles))
	for _, c := range existing {
		byTitle[c.Title] = c
	}

	now := s.txs.now()
	var missing []core.Category
	for _, title := range titles {
		if _, ok := byTitle[title]; !ok {
			missing = append(missing, core.Category{ID: s.txs.newID(), Title: title, CreatedAt: now, UpdatedAt: now})
		}
	}
	if len(missing) > 0 {
		created, err := s.txs.store.CreateCategories(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("create categories: %w", err)
		}
		for _, c := range created {
			byTitle[c.Title] = c
		}
		slog.InfoContext(ctx, "Categories created during import", "count", len(created))
	}
	for title, c := range byTitle {
		s.txs.categories.Set(title, c)
	}
	return byTitle, nil
}

func readRows(in io.Reader) ([]csvRow, []int, error) {
	rr := newRowReader(in)
	records, err := rr.ReadAll()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	var rows []csvRow
	if err := gocsv.UnmarshalCSVWithoutHeaders(&replayReader{records: records}, &rows); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	return rows, rr.lines, nil
}

// replayReader hands already-normalised records to gocsv.
type replayReader struct {
	records [][]string
}

func (r *replayReader) Read() ([]string, error) {
	if len(r.records) == 0 {
		return nil, io.EOF
	}
	rec := r.records[0]
	r.records = r.records[1:]
	return rec, nil
}

func (r *replayReader) ReadAll() ([][]string, error) {
	out := r.records
	r.records = nil
	return out, nil
}

func missingField(row csvRow) string {
	switch {
	case row.Title == "":
		return "title"
	case row.Type == "":
		return "type"
	case row.Value == "":
		return "value"
	case row.Category == "":
		return "category"
	}
	return ""
}

func distinctCategories(rows []pendingRow) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.category]; ok {
			continue
		}
		seen[r.category] = struct{}{}
		out = append(out, r.category)
	}
	return out
}
