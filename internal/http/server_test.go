package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"saldo/internal/api"
	"saldo/internal/query"
	"saldo/internal/services"
)

// fakeBackend is a minimal stand-in for the remote finance API.
type fakeBackend struct {
	mu   sync.Mutex
	hits map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hits: make(map[string]int)}
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func (b *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.Method+" "+r.URL.Path]++
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/accounts" && r.Method == http.MethodGet:
			w.Write([]byte(`[
				{"id":1,"name":"Checking","type":"bank","balance":"100.00","cumulative_balance":250.5,"month_income":300,"month_expenses":49.5},
				{"id":2,"name":"Old","type":"bank","balance":"500.00","account_existed":false}
			]`))
		case r.URL.Path == "/transactions" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"transaction":{"id":10,"type":"expense","amount":"12.00","account_id":1,"category_id":2,"date":"2026-08-10"}}`))
		case r.URL.Path == "/transactions" && r.Method == http.MethodGet:
			w.Write([]byte(`{"data":[],"total":0,"current_page":1,"last_page":1}`))
		case r.URL.Path == "/categories" && r.Method == http.MethodGet:
			w.Write([]byte(`[{"id":2,"name":"Groceries","type":"expense","color":"#ff0000"}]`))
		case r.URL.Path == "/login":
			w.Write([]byte(`{"token":"tok","user":{"id":1,"name":"Ada","email":"ada@example.com"}}`))
		case strings.HasPrefix(r.URL.Path, "/budgets"):
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"not found"}`))
		}
	})
}

func newTestServer(t *testing.T) (*Server, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, api.WithToken("tok"))
	cache := query.NewCache()
	ledger := services.NewLedger(client, cache, nil)
	return NewServer("127.0.0.1:0", ledger), backend
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestAccountsReturnsTotals(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/accounts?year=2026&month=8", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Accounts []json.RawMessage `json:"accounts"`
		Totals   struct {
			TotalBalance       float64 `json:"TotalBalance"`
			ActiveAccountCount int     `json:"ActiveAccountCount"`
		} `json:"totals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(resp.Accounts))
	}
	// The second account did not exist in the requested month; only the
	// first contributes to the totals.
	if resp.Totals.TotalBalance != 250.5 {
		t.Errorf("TotalBalance = %v, want 250.5", resp.Totals.TotalBalance)
	}
	if resp.Totals.ActiveAccountCount != 1 {
		t.Errorf("ActiveAccountCount = %d, want 1", resp.Totals.ActiveAccountCount)
	}
}

func TestRepeatedReadsServedFromCache(t *testing.T) {
	s, backend := newTestServer(t)

	for i := 0; i < 3; i++ {
		rec := doRequest(s, http.MethodGet, "/accounts", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	if got := backend.count("GET /accounts"); got != 1 {
		t.Errorf("backend hits = %d, want 1 (cache should absorb repeats)", got)
	}
}

func TestCreateTransactionInvalidatesAccounts(t *testing.T) {
	s, backend := newTestServer(t)

	doRequest(s, http.MethodGet, "/accounts", "")
	if got := backend.count("GET /accounts"); got != 1 {
		t.Fatalf("warmup hits = %d, want 1", got)
	}

	rec := doRequest(s, http.MethodPost, "/transactions",
		`{"type":"expense","amount":12.0,"account_id":1,"category_id":2,"date":"2026-08-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The invalidated entry still answers immediately; revalidation hits
	// the backend in the background.
	doRequest(s, http.MethodGet, "/accounts", "")
	deadline := time.Now().Add(2 * time.Second)
	for backend.count("GET /accounts") < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("backend hits = %d, want 2 (accounts revalidated after mutation)", backend.count("GET /accounts"))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInvalidTransactionRejectedLocally(t *testing.T) {
	s, backend := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/transactions",
		`{"type":"expense","amount":-5,"account_id":1,"category_id":2,"date":"2026-08-10"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if got := backend.count("POST /transactions"); got != 0 {
		t.Errorf("backend hits = %d, invalid payload must not reach the network", got)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/transactions", `{"type":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestInvalidPathID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodDelete, "/transactions/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginStoresSession(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/login", `{"email":"ada@example.com","password":"pw"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Name != "Ada" {
		t.Errorf("user name = %q, want %q", resp.User.Name, "Ada")
	}

	rec = doRequest(s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz after login = %d, want 200", rec.Code)
	}
}

func TestReadyzWithoutSession(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/transactions", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimiterAllows(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request 61 within a minute should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("a different client must not be affected")
	}
}
