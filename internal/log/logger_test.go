package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: NewHandler(&buf, slog.LevelInfo, "JSON"), Component: ComponentLedger})
	logger.InfoContext(context.Background(), "Transaction created", FieldTransactionID, "t1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Transaction created", rec["msg"])
	assert.Equal(t, ComponentLedger, rec[FieldComponent])
	assert.Equal(t, "t1", rec[FieldTransactionID])

	buf.Reset()
	text := New(Config{Handler: NewHandler(&buf, slog.LevelInfo, "text"), Component: ComponentHTTP})
	text.InfoContext(context.Background(), "hello")
	assert.Contains(t, buf.String(), "component=http")
}

func TestNewHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: NewHandler(&buf, slog.LevelWarn, "text")})
	logger.InfoContext(context.Background(), "dropped")
	assert.Empty(t, buf.String())
	logger.WarnContext(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestFields(t *testing.T) {
	f := NewFields().WithComponent(ComponentImport).WithOperation(OpImport).WithImport(3, 1, 2).WithError(nil)
	assert.Equal(t, ComponentImport, f[FieldComponent])
	assert.Equal(t, 3, f[FieldImported])
	assert.NotContains(t, f, FieldError)
	assert.Len(t, f.ToSlice(), len(f)*2)
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Handler: NewHandler(&buf, slog.LevelInfo, "json"), Component: ComponentHTTP})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, ComponentHTTP, got.Component())
	assert.Contains(t, buf.String(), `"request_id":"req_1"`)

	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}
