package http

import (
	"net/http"

	"saldo/internal/api"
)

type credentialsPayload struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User api.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var p credentialsPayload
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.Email == "" || p.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Email and password are required.")
		return
	}

	user, err := s.ledger.Login(r.Context(), p.Email, p.Password)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var p credentialsPayload
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.Name == "" || p.Email == "" || p.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Name, email and password are required.")
		return
	}

	user, err := s.ledger.Register(r.Context(), p.Name, p.Email, p.Password)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.ledger.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}
