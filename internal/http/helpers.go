package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"saldo/internal/api"
	"saldo/internal/services"
)

type errorResponse struct {
	Message        string              `json:"message"`
	Errors         map[string][]string `json:"errors,omitempty"`
	BudgetExceeded bool                `json:"budget_exceeded,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeLedgerError translates the service error taxonomy to HTTP. Backend
// rejections keep their status and body details; transport failures show
// the generic message.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Not logged in.")
	case errors.Is(err, services.ErrMutationPending):
		writeError(w, http.StatusConflict, "A matching request is already in flight.")
	default:
		if apiErr, ok := api.AsError(err); ok {
			writeJSON(w, apiErr.StatusCode, errorResponse{
				Message:        apiErr.Error(),
				Errors:         apiErr.Errors,
				BudgetExceeded: apiErr.BudgetExceeded,
			})
			return
		}
		if api.IsNetworkError(err) {
			writeError(w, http.StatusBadGateway, api.GenericErrorMessage)
			return
		}
		// Client-side validation failures from the core package.
		slog.WarnContext(r.Context(), "Request rejected", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id.")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func queryInt64(r *http.Request, name string) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
