package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"saldo/internal/core"
)

// Client is the typed HTTP client for the finance backend. It never computes
// authoritative balances; every figure it returns was computed server-side.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	// onUnauthorized is invoked once per 401 response. The session layer
	// registers its global teardown here (clear token/user, drop the cache).
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken seeds a previously persisted auth token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer token sent on all subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers the global 401 handler.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// do performs one request. Transport failures come back as network errors
// (generic message, mutation considered not-applied); non-2xx responses are
// parsed into *Error; a 401 additionally fires the unauthorized hook.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &netError{op: method + " " + path, err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &netError{op: method + " " + path, err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized(ctx)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseError(resp.StatusCode, respBody)
		slog.DebugContext(ctx, "Request rejected by server",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message)
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) fireUnauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		slog.WarnContext(ctx, "Unauthorized response, tearing down session")
		fn()
	}
}

// Auth.

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", nil, payload, &resp); err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (AuthResponse, error) {
	var resp AuthResponse
	payload := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/register", nil, payload, &resp); err != nil {
		return AuthResponse{}, err
	}
	c.SetToken(resp.Token)
	return resp, nil
}

// Accounts.

func (c *Client) Accounts(ctx context.Context, f AccountFilter) ([]core.Account, error) {
	var accounts []core.Account
	if err := c.do(ctx, http.MethodGet, "/accounts", f.Params(), nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) AccountDetail(ctx context.Context, id int64, f DetailFilter) (AccountDetail, error) {
	var detail AccountDetail
	path := fmt.Sprintf("/accounts/%d", id)
	if err := c.do(ctx, http.MethodGet, path, f.Params(), nil, &detail); err != nil {
		return AccountDetail{}, err
	}
	return detail, nil
}

func (c *Client) CreateAccount(ctx context.Context, p AccountPayload) (core.Account, error) {
	var a core.Account
	err := c.do(ctx, http.MethodPost, "/accounts", nil, p, &a)
	return a, err
}

func (c *Client) UpdateAccount(ctx context.Context, id int64, p AccountPayload) (core.Account, error) {
	var a core.Account
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/accounts/%d", id), nil, p, &a)
	return a, err
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/accounts/%d", id), nil, nil, nil)
}

// Transfer creates the two linked legs atomically server-side.
func (c *Client) Transfer(ctx context.Context, tr core.TransferRequest) (TransferResult, error) {
	var res TransferResult
	err := c.do(ctx, http.MethodPost, "/accounts/transfer", nil, tr, &res)
	return res, err
}

// Transactions.

func (c *Client) Transactions(ctx context.Context, f TransactionFilter) (Page[core.Transaction], error) {
	var page Page[core.Transaction]
	err := c.do(ctx, http.MethodGet, "/transactions", f.Params(), nil, &page)
	return page, err
}

func (c *Client) CreateTransaction(ctx context.Context, p TransactionPayload) (TransactionResult, error) {
	var res TransactionResult
	err := c.do(ctx, http.MethodPost, "/transactions", nil, p, &res)
	return res, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, p TransactionPayload) (TransactionResult, error) {
	var res TransactionResult
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/transactions/%d", id), nil, p, &res)
	return res, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/transactions/%d", id), nil, nil, nil)
}

// CheckBudget is advisory only; final enforcement happens server-side on the
// actual create call.
func (c *Client) CheckBudget(ctx context.Context, p TransactionPayload) (BudgetCheck, error) {
	var check BudgetCheck
	err := c.do(ctx, http.MethodPost, "/transactions/check-budget", nil, p, &check)
	return check, err
}

// Categories.

func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, p CategoryPayload) (core.Category, error) {
	var cat core.Category
	err := c.do(ctx, http.MethodPost, "/categories", nil, p, &cat)
	return cat, err
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, p CategoryPayload) (core.Category, error) {
	var cat core.Category
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), nil, p, &cat)
	return cat, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil, nil)
}

// Budgets.

func (c *Client) Budgets(ctx context.Context, f BudgetFilter) ([]core.Budget, error) {
	var budgets []core.Budget
	if err := c.do(ctx, http.MethodGet, "/budgets", f.Params(), nil, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (c *Client) CreateBudget(ctx context.Context, p BudgetPayload) (core.Budget, error) {
	var b core.Budget
	err := c.do(ctx, http.MethodPost, "/budgets", nil, p, &b)
	return b, err
}

func (c *Client) UpdateBudget(ctx context.Context, id int64, p BudgetPayload) (core.Budget, error) {
	var b core.Budget
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/budgets/%d", id), nil, p, &b)
	return b, err
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/budgets/%d", id), nil, nil, nil)
}

// Dashboard & notifications.

func (c *Client) Dashboard(ctx context.Context, year, month int) (DashboardStats, error) {
	var stats DashboardStats
	err := c.do(ctx, http.MethodGet, "/dashboard", AccountFilter{Year: year, Month: month}.Params(), nil, &stats)
	return stats, err
}

func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var ns []Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, nil, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func (c *Client) CreateNotification(ctx context.Context, title, message string) (Notification, error) {
	var n Notification
	payload := map[string]string{"title": title, "message": message}
	err := c.do(ctx, http.MethodPost, "/admin/notifications", nil, payload, &n)
	return n, err
}

func (c *Client) DeleteNotification(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/notifications/%d", id), nil, nil, nil)
}
