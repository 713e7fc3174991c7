package http

import (
	"net/http"

	"saldo/internal/api"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var p api.CategoryPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	category, err := s.ledger.CreateCategory(r.Context(), p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p api.CategoryPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	category, err := s.ledger.UpdateCategory(r.Context(), id, p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted."})
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	f := api.BudgetFilter{
		Year:  queryInt(r, "year"),
		Month: queryInt(r, "month"),
	}

	budgets, err := s.ledger.Budgets(r.Context(), f)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var p api.BudgetPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	budget, err := s.ledger.CreateBudget(r.Context(), p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p api.BudgetPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	budget, err := s.ledger.UpdateBudget(r.Context(), id, p)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteBudget(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Budget deleted."})
}
