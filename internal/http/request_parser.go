package http

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

const maxJSONBody = 1 << 20

type createRequest struct {
	Title    string           `json:"title"`
	Value    *decimal.Decimal `json:"value"`
	Type     string           `json:"type"`
	Category string           `json:"category"`
}

// parseCreateRequest decodes a JSON body into a NewTransaction. The value
// may be sent as a number or a numeric string.
func parseCreateRequest(r *http.Request) (core.NewTransaction, error) {
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewTransaction{}, err
		}
		return core.NewTransaction{}, badRequest{"invalid JSON body"}
	}
	if req.Value == nil {
		return core.NewTransaction{}, core.ErrInvalidValue
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Title:    strings.TrimSpace(req.Title),
		Type:     typ,
		Value:    *req.Value,
		Category: strings.TrimSpace(req.Category),
	}, nil
}

// openUpload returns the multipart "file" part, capping the body at maxBytes.
func openUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, badRequest{"expected multipart/form-data with a file field"}
		}
		return nil, badRequest{"invalid multipart body"}
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest{`missing "file" field`}
	}
	return file, nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}
