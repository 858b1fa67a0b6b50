package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store := memory.New()
	txs := services.NewTransactionService(store)
	srv := NewServer(":0", store, txs, services.NewImportService(txs), opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postJSON(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func multipartRequest(t *testing.T, target, field, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "import.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "error", e.Status)
	return e
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestBalanceScenario(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.postJSON(t, `{"title":"Salary","value":1000,"type":"income","category":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.Category)
	assert.Equal(t, "Work", created.Category.Title)

	rec = ts.postJSON(t, `{"title":"Rent","value":"500","type":"outcome","category":"Home"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.postJSON(t, `{"title":"TV","value":600,"type":"outcome","category":"Home"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient funds", decodeError(t, rec).Message)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listing services.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Transactions, 2)
	assert.True(t, listing.Balance.Income.Equal(decimal.NewFromInt(1000)))
	assert.True(t, listing.Balance.Outcome.Equal(decimal.NewFromInt(500)))
	assert.True(t, listing.Balance.Total.Equal(decimal.NewFromInt(500)))
	assert.Contains(t, rec.Body.String(), `"total":500`)
}

func TestCreateTransaction_Validation(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := map[string]string{
		"invalid json":   `{"title":`,
		"missing value":  `{"title":"x","type":"income","category":"c"}`,
		"bad value":      `{"title":"x","value":"abc","type":"income","category":"c"}`,
		"negative value": `{"title":"x","value":-1,"type":"income","category":"c"}`,
		"bad type":       `{"title":"x","value":1,"type":"transfer","category":"c"}`,
		"empty title":    `{"title":" ","value":1,"type":"income","category":"c"}`,
		"empty category": `{"title":"x","value":1,"type":"income","category":""}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.postJSON(t, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			decodeError(t, rec)
		})
	}

	all, _ := ts.store.ListTransactions(context.Background())
	assert.Empty(t, all)
}

func TestDeleteTransaction(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.postJSON(t, `{"title":"Salary","value":10,"type":"income","category":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/transactions/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, httptest.NewRequest(http.MethodDelete, "/transactions/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)
}

const sampleCSV = "title,type,value,category\n" +
	"Groceries, outcome, 50, Food\n" +
	"Lunch, outcome, 12, Food\n" +
	"Rent, outcome, 800, Rent\n" +
	"Broken, income, , Work\n"

func TestImportTransactions(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, multipartRequest(t, "/transactions/import", "file", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var imported []core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	require.Len(t, imported, 3)
	assert.Equal(t, "Groceries", imported[0].Title)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []core.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	assert.Len(t, categories, 2)
}

func TestImportTransactions_Report(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, multipartRequest(t, "/transactions/import?report=true&enforce_balance=true", "file", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report services.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Empty(t, report.Transactions, "nothing is covered by an empty ledger")
	assert.Len(t, report.Rejected, 3)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 5, report.Skipped[0].Line)
}

func TestImportTransactions_BadUploads(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, multipartRequest(t, "/transactions/import", "other", sampleCSV))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `missing "file" field`, decodeError(t, rec).Message)

	req := httptest.NewRequest(http.MethodPost, "/transactions/import", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec = ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "expected multipart/form-data with a file field", decodeError(t, rec).Message)

	all, _ := ts.store.ListTransactions(context.Background())
	assert.Empty(t, all)
}

func TestImportTransactions_UploadTooLarge(t *testing.T) {
	ts := newTestServer(t, Options{MaxUploadBytes: 256})

	big := "title,type,value,category\n" + strings.Repeat("Salary,income,1,Work\n", 100)
	rec := ts.do(t, multipartRequest(t, "/transactions/import", "file", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "upload too large", decodeError(t, rec).Message)

	all, _ := ts.store.ListTransactions(context.Background())
	assert.Empty(t, all)
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 1})

	rec := ts.postJSON(t, `{"title":"Salary","value":10,"type":"income","category":"Work"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.postJSON(t, `{"title":"Salary","value":10,"type":"income","category":"Work"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	decodeError(t, rec)

	for i := 0; i < 3; i++ {
		rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/transactions", nil))
		assert.Equal(t, http.StatusOK, rec.Code, fmt.Sprintf("read %d", i))
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, Options{})
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	decodeError(t, rec)

	rec = ts.do(t, httptest.NewRequest(http.MethodPut, "/transactions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInsufficientFunds, http.StatusBadRequest},
		{fmt.Errorf("delete transaction: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad quote", services.ErrMalformedCSV), http.StatusBadRequest},
		{core.ErrInvalidType, http.StatusBadRequest},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
	_, msg := statusFor(errors.New("disk on fire"))
	assert.Equal(t, "internal server error", msg, "internal details are not leaked")
}
