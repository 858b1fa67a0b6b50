package http

import (
	"net/http"

	"ledger/internal/log"
	"ledger/internal/services"

	"github.com/gorilla/mux"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	listing, err := s.transactions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := parseCreateRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.transactions.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(created.ID, created.Title, string(created.Type), created.Value.String(), in.Category).
			ToSlice()...)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportTransactions accepts a multipart upload in field "file". It
// answers with the created transactions, or the full report when
// ?report=true.
func (s *Server) handleImportTransactions(w http.ResponseWriter, r *http.Request) {
	file, err := openUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer file.Close()

	opts := services.ImportOptions{EnforceBalance: s.opts.EnforceBalance || queryBool(r, "enforce_balance")}
	report, err := s.imports.Import(r.Context(), file, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	log.FromContext(ctx).InfoContext(ctx, "Transactions imported",
		log.NewFields().
			WithOperation(log.OpImport).
			WithImport(len(report.Transactions), len(report.Skipped), len(report.Rejected)).
			ToSlice()...)

	if queryBool(r, "report") {
		writeJSON(w, http.StatusOK, report)
		return
	}
	writeJSON(w, http.StatusOK, report.Transactions)
}
