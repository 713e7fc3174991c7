package http

import (
	"net/http"

	"saldo/internal/api"
	"saldo/internal/core"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	f := api.TransactionFilter{
		Type:       core.EntryType(r.URL.Query().Get("type")),
		AccountID:  queryInt64(r, "account_id"),
		CategoryID: queryInt64(r, "category_id"),
		Year:       queryInt(r, "year"),
		Month:      queryInt(r, "month"),
		Search:     r.URL.Query().Get("search"),
		Page:       queryInt(r, "page"),
		PerPage:    queryInt(r, "per_page"),
	}

	page, err := s.ledger.Transactions(r.Context(), f)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var p api.TransactionPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	result, err := s.ledger.CreateTransaction(r.Context(), p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p api.TransactionPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	result, err := s.ledger.UpdateTransaction(r.Context(), id, p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction deleted."})
}

func (s *Server) handleCheckBudget(w http.ResponseWriter, r *http.Request) {
	var p api.TransactionPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	check, err := s.ledger.CheckBudget(r.Context(), p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
