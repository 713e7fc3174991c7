package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"saldo/internal/amqp"
	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/query"
)

type fakeSource struct {
	pages [][]core.Transaction
	err   error
	calls int
}

func (s *fakeSource) Transactions(_ context.Context, f api.TransactionFilter) (api.Page[core.Transaction], error) {
	s.calls++
	if s.err != nil {
		return api.Page[core.Transaction]{}, s.err
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > len(s.pages) {
		return api.Page[core.Transaction]{CurrentPage: page, LastPage: len(s.pages)}, nil
	}
	return api.Page[core.Transaction]{
		Data:        s.pages[page-1],
		Total:       0,
		CurrentPage: page,
		LastPage:    len(s.pages),
	}, nil
}

type fakeStore struct {
	mu         sync.Mutex
	checkpoint int64
	saves      int
}

func (s *fakeStore) ExportCheckpoint(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint, nil
}

func (s *fakeStore) SetExportCheckpoint(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = id
	s.saves++
	return nil
}

type fakeWriter struct {
	mu       sync.Mutex
	appended []int64
	failOn   int64
}

func (w *fakeWriter) Append(_ context.Context, tx core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn != 0 && tx.ID == w.failOn {
		return "", errors.New("sheets unavailable")
	}
	w.appended = append(w.appended, tx.ID)
	return fmt.Sprintf("row-%d", tx.ID), nil
}

func tx(id int64) core.Transaction {
	return core.Transaction{
		ID:         id,
		Type:       core.Expense,
		Amount:     "10.00",
		AccountID:  1,
		CategoryID: 2,
		Date:       "2026-08-01",
	}
}

func TestExportWorkerSkipsAlreadyExported(t *testing.T) {
	source := &fakeSource{pages: [][]core.Transaction{
		{tx(1), tx(2), tx(3)},
		{tx(4), tx(5)},
	}}
	store := &fakeStore{checkpoint: 3}
	writer := &fakeWriter{}

	w := NewExportWorker(source, store, writer, 3)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(writer.appended) != 2 {
		t.Fatalf("appended %v, want IDs 4 and 5 only", writer.appended)
	}
	if writer.appended[0] != 4 || writer.appended[1] != 5 {
		t.Errorf("appended %v, want [4 5]", writer.appended)
	}
	if store.checkpoint != 5 {
		t.Errorf("checkpoint = %d, want 5", store.checkpoint)
	}
}

func TestExportWorkerEmptyLedger(t *testing.T) {
	source := &fakeSource{pages: [][]core.Transaction{{}}}
	store := &fakeStore{}
	writer := &fakeWriter{}

	w := NewExportWorker(source, store, writer, 10)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(writer.appended) != 0 {
		t.Errorf("appended %v, want none", writer.appended)
	}
	if store.saves != 0 {
		t.Errorf("checkpoint saved %d times, want 0", store.saves)
	}
}

func TestExportWorkerFailedAppendKeepsProgress(t *testing.T) {
	source := &fakeSource{pages: [][]core.Transaction{
		{tx(1), tx(2), tx(3)},
	}}
	store := &fakeStore{}
	writer := &fakeWriter{failOn: 3}

	w := NewExportWorker(source, store, writer, 10)
	err := w.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error from failed append")
	}

	if len(writer.appended) != 2 {
		t.Fatalf("appended %v, want IDs 1 and 2", writer.appended)
	}
	if store.checkpoint != 2 {
		t.Errorf("checkpoint = %d, want 2 so the next pass resumes at transaction 3", store.checkpoint)
	}
}

func TestExportWorkerSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("backend down")}
	store := &fakeStore{checkpoint: 7}
	writer := &fakeWriter{}

	w := NewExportWorker(source, store, writer, 10)
	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error when the backend is unreachable")
	}

	if store.checkpoint != 7 {
		t.Errorf("checkpoint = %d, want unchanged 7", store.checkpoint)
	}
}

func TestInvalidationWorkerHandleChangeEvent(t *testing.T) {
	cache := query.NewCache()
	ctx := context.Background()

	txKey := query.NewKey(query.GroupTransactions)
	catKey := query.NewKey(query.GroupCategories)

	if _, err := query.Get(ctx, cache, txKey, func(context.Context) (string, error) {
		return "transactions", nil
	}); err != nil {
		t.Fatalf("prime transactions: %v", err)
	}
	if _, err := query.Get(ctx, cache, catKey, func(context.Context) (string, error) {
		return "categories", nil
	}); err != nil {
		t.Fatalf("prime categories: %v", err)
	}

	w := NewInvalidationWorker(cache)
	event := amqp.NewChangeEvent("transaction", "created", 10, 1)
	if err := w.HandleChangeEvent(ctx, event); err != nil {
		t.Fatalf("HandleChangeEvent() error = %v", err)
	}

	if !cache.Invalidated(txKey) {
		t.Error("transactions key should be invalidated after a transaction event")
	}
	if cache.Invalidated(catKey) {
		t.Error("categories key should be untouched by a transaction event")
	}
}

func TestInvalidationWorkerIgnoresUnknownEntity(t *testing.T) {
	cache := query.NewCache()
	ctx := context.Background()

	key := query.NewKey(query.GroupAccounts)
	if _, err := query.Get(ctx, cache, key, func(context.Context) (string, error) {
		return "accounts", nil
	}); err != nil {
		t.Fatalf("prime accounts: %v", err)
	}

	w := NewInvalidationWorker(cache)
	event := amqp.NewChangeEvent("mystery", "created", 1, 1)
	if err := w.HandleChangeEvent(ctx, event); err != nil {
		t.Fatalf("unknown entity should be dropped, got error %v", err)
	}

	if cache.Invalidated(key) {
		t.Error("unknown entity must not invalidate anything")
	}
}
