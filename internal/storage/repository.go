// Package storage persists client-side state that must survive restarts:
// the auth session, per-user display preferences, the set of read
// notification ids and the sheets-export checkpoint.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"saldo/internal/api"

	_ "modernc.org/sqlite"
)

// Preferences are the per-user UI preferences the backend knows nothing
// about.
type Preferences struct {
	Avatar         string
	Currency       string
	CompactNumbers bool
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveSession stores the auth token and user after a successful login.
func (r *SQLiteRepository) SaveSession(ctx context.Context, token string, user api.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_json, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at`,
		token, string(userJSON))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the persisted session, with ok=false when logged out.
func (r *SQLiteRepository) LoadSession(ctx context.Context) (token string, user api.User, ok bool, err error) {
	var userJSON string
	row := r.db.QueryRowContext(ctx, `SELECT token, user_json FROM session WHERE id = 1`)
	if err := row.Scan(&token, &userJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", api.User{}, false, nil
		}
		return "", api.User{}, false, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return "", api.User{}, false, fmt.Errorf("decode user: %w", err)
	}
	return token, user, true, nil
}

// ClearSession removes the persisted token and user on logout.
func (r *SQLiteRepository) ClearSession(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SavePreferences upserts a user's UI preferences.
func (r *SQLiteRepository) SavePreferences(ctx context.Context, userID int64, p Preferences) error {
	compact := 0
	if p.CompactNumbers {
		compact = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, avatar, currency, compact_numbers, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			avatar = excluded.avatar,
			currency = excluded.currency,
			compact_numbers = excluded.compact_numbers,
			updated_at = excluded.updated_at`,
		userID, p.Avatar, p.Currency, compact)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// LoadPreferences returns a user's preferences, or defaults when none were
// stored yet.
func (r *SQLiteRepository) LoadPreferences(ctx context.Context, userID int64) (Preferences, error) {
	p := Preferences{Currency: "EUR"}
	var compact int
	row := r.db.QueryRowContext(ctx,
		`SELECT avatar, currency, compact_numbers FROM preferences WHERE user_id = ?`, userID)
	if err := row.Scan(&p.Avatar, &p.Currency, &compact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, nil
		}
		return p, fmt.Errorf("load preferences: %w", err)
	}
	p.CompactNumbers = compact != 0
	return p, nil
}

// MarkNotificationRead records a dismissed/read notification id for a user.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO read_notifications (user_id, notification_id)
		VALUES (?, ?)
		ON CONFLICT(user_id, notification_id) DO NOTHING`,
		userID, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// ReadNotifications returns the ids a user has already read.
func (r *SQLiteRepository) ReadNotifications(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT notification_id FROM read_notifications WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}
	defer rows.Close()

	read := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		read[id] = true
	}
	return read, rows.Err()
}

// ExportCheckpoint returns the last transaction id appended to the sheet, 0
// when no export ran yet.
func (r *SQLiteRepository) ExportCheckpoint(ctx context.Context) (int64, error) {
	var id int64
	row := r.db.QueryRowContext(ctx, `SELECT last_transaction_id FROM export_state WHERE id = 1`)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("export checkpoint: %w", err)
	}
	return id, nil
}

// SetExportCheckpoint advances the export checkpoint.
func (r *SQLiteRepository) SetExportCheckpoint(ctx context.Context, lastTransactionID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_state (id, last_transaction_id, exported_at)
		VALUES (1, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			last_transaction_id = excluded.last_transaction_id,
			exported_at = excluded.exported_at`,
		lastTransactionID)
	if err != nil {
		return fmt.Errorf("set export checkpoint: %w", err)
	}
	return nil
}
