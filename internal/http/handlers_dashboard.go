package http

import (
	"net/http"
	"time"

	"saldo/internal/storage"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year := queryInt(r, "year")
	month := queryInt(r, "month")
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		month = int(now.Month())
	}

	stats, err := s.ledger.Dashboard(r.Context(), year, month)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.ledger.Notifications(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.ledger.UnreadNotificationCount(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.MarkNotificationRead(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Marked as read."})
}

type notificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var p notificationPayload
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.Title == "" || p.Message == "" {
		writeError(w, http.StatusUnprocessableEntity, "Title and message are required.")
		return
	}

	notification, err := s.ledger.CreateNotification(r.Context(), p.Title, p.Message)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, notification)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteNotification(r.Context(), id); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted."})
}

type preferencesPayload struct {
	Avatar         string `json:"avatar"`
	Currency       string `json:"currency"`
	CompactNumbers bool   `json:"compact_numbers"`
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.ledger.Preferences(r.Context())
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesPayload{
		Avatar:         prefs.Avatar,
		Currency:       prefs.Currency,
		CompactNumbers: prefs.CompactNumbers,
	})
}

func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var p preferencesPayload
	if !decodeJSON(w, r, &p) {
		return
	}

	prefs := storage.Preferences{
		Avatar:         p.Avatar,
		Currency:       p.Currency,
		CompactNumbers: p.CompactNumbers,
	}
	if err := s.ledger.SavePreferences(r.Context(), prefs); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
