package storage

import (
	"context"
	"path/filepath"
	"testing"

	"saldo/internal/api"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "saldo.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSessionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, _, ok, err := repo.LoadSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("fresh database reported a session")
	}

	user := api.User{ID: 7, Name: "Ada", Email: "ada@example.com"}
	if err := repo.SaveSession(ctx, "tok-1", user); err != nil {
		t.Fatal(err)
	}

	token, gotUser, ok, err := repo.LoadSession(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadSession: ok=%v err=%v", ok, err)
	}
	if token != "tok-1" || gotUser != user {
		t.Errorf("loaded (%q, %+v), want (tok-1, %+v)", token, gotUser, user)
	}

	// Saving again replaces, it does not duplicate.
	if err := repo.SaveSession(ctx, "tok-2", user); err != nil {
		t.Fatal(err)
	}
	token, _, _, _ = repo.LoadSession(ctx)
	if token != "tok-2" {
		t.Errorf("token = %q after re-save, want tok-2", token)
	}

	if err := repo.ClearSession(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, ok, _ := repo.LoadSession(ctx); ok {
		t.Error("session survived ClearSession")
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Defaults before anything is stored.
	p, err := repo.LoadPreferences(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if p.Currency != "EUR" || p.CompactNumbers || p.Avatar != "" {
		t.Errorf("unexpected defaults %+v", p)
	}

	want := Preferences{Avatar: "🦊", Currency: "USD", CompactNumbers: true}
	if err := repo.SavePreferences(ctx, 7, want); err != nil {
		t.Fatal(err)
	}
	got, err := repo.LoadPreferences(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("LoadPreferences = %+v, want %+v", got, want)
	}

	// Preferences are keyed by user id.
	other, _ := repo.LoadPreferences(ctx, 8)
	if other.Avatar != "" {
		t.Errorf("user 8 inherited user 7's avatar: %+v", other)
	}
}

func TestReadNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 2} { // duplicate marks are fine
		if err := repo.MarkNotificationRead(ctx, 7, id); err != nil {
			t.Fatal(err)
		}
	}

	read, err := repo.ReadNotifications(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(read) != 2 || !read[1] || !read[2] {
		t.Errorf("ReadNotifications = %v, want {1,2}", read)
	}
}

func TestExportCheckpoint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.ExportCheckpoint(ctx)
	if err != nil || id != 0 {
		t.Fatalf("initial checkpoint = %d, %v; want 0", id, err)
	}

	if err := repo.SetExportCheckpoint(ctx, 41); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetExportCheckpoint(ctx, 99); err != nil {
		t.Fatal(err)
	}

	id, err = repo.ExportCheckpoint(ctx)
	if err != nil || id != 99 {
		t.Errorf("checkpoint = %d, %v; want 99", id, err)
	}
}
