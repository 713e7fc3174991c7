package http

import (
	"net/http"

	"saldo/internal/api"
	"saldo/internal/core"
)

type accountsResponse struct {
	Accounts []core.Account       `json:"accounts"`
	Totals   core.PortfolioTotals `json:"totals"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	f := api.AccountFilter{
		Year:  queryInt(r, "year"),
		Month: queryInt(r, "month"),
	}

	accounts, totals, err := s.ledger.Portfolio(r.Context(), f)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsResponse{Accounts: accounts, Totals: totals})
}

func (s *Server) handleAccountDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f := api.DetailFilter{
		Type:    core.EntryType(r.URL.Query().Get("type")),
		Page:    queryInt(r, "page"),
		PerPage: queryInt(r, "per_page"),
	}

	detail, err := s.ledger.AccountDetail(r.Context(), id, f)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var p api.AccountPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p api.AccountPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	account, err := s.ledger.UpdateAccount(r.Context(), id, p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted."})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var tr core.TransferRequest
	if !decodeJSON(w, r, &tr) {
		return
	}

	result, err := s.ledger.Transfer(r.Context(), tr)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
