package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// badRequest marks client input errors that carry their own message.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

// statusFor maps an error to its HTTP status and the message safe to show.
func statusFor(err error) (int, string) {
	var br badRequest
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "upload too large"
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusBadRequest, core.ErrInsufficientFunds.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "transaction not found"
	case errors.Is(err, services.ErrMalformedCSV):
		return http.StatusBadRequest, err.Error()
	}
	for _, v := range []error{core.ErrEmptyTitle, core.ErrTitleTooLong, core.ErrEmptyCategory, core.ErrInvalidType, core.ErrInvalidValue} {
		if errors.Is(err, v) {
			return http.StatusBadRequest, v.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	ctx := r.Context()
	if status >= 500 {
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err)
	} else {
		log.FromContext(ctx).DebugContext(ctx, "Request rejected", log.FieldStatusCode, status, log.FieldError, err)
	}
	writeError(w, status, msg)
}
