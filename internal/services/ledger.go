// Package services orchestrates the API client, query cache and local
// session store. Every mutation flows through the Ledger so the
// cross-entity invalidation rules fire in exactly one place.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"saldo/internal/api"
	"saldo/internal/core"
	"saldo/internal/query"
	"saldo/internal/storage"
)

// ErrMutationPending is returned when the same mutation is already in
// flight. The caller keeps its control disabled instead of double-submitting.
var ErrMutationPending = errors.New("mutation already in progress")

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Ledger is the application service behind every view. Reads go through the
// query cache; mutations hit the backend directly and, only on success,
// invalidate the affected cache groups.
type Ledger struct {
	api   *api.Client
	cache *query.Cache
	store *storage.SQLiteRepository // optional; nil means nothing persists

	mu       sync.Mutex
	inflight map[string]bool
	user     api.User
	loggedIn bool
}

// NewLedger wires the service together and registers the global 401
// teardown on the API client.
func NewLedger(client *api.Client, cache *query.Cache, store *storage.SQLiteRepository) *Ledger {
	s := &Ledger{
		api:      client,
		cache:    cache,
		store:    store,
		inflight: make(map[string]bool),
	}
	client.OnUnauthorized(func() {
		s.teardown(context.Background())
	})
	return s
}

// RestoreSession loads a persisted token/user, if any, and arms the client
// with it.
func (s *Ledger) RestoreSession(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	token, user, ok, err := s.store.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.api.SetToken(token)
	s.mu.Lock()
	s.user = user
	s.loggedIn = true
	s.mu.Unlock()
	slog.InfoContext(ctx, "Session restored", "user_id", user.ID)
	return true, nil
}

// User returns the authenticated user, if any.
func (s *Ledger) User() (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.loggedIn
}

// Login authenticates, persists the session and starts from an empty cache.
func (s *Ledger) Login(ctx context.Context, email, password string) (api.User, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return api.User{}, err
	}
	s.mu.Lock()
	s.user = resp.User
	s.loggedIn = true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveSession(ctx, resp.Token, resp.User); err != nil {
			slog.ErrorContext(ctx, "Failed to persist session", "error", err)
		}
	}
	s.cache.Clear()
	return resp.User, nil
}

// Register creates an account and behaves like Login on success.
func (s *Ledger) Register(ctx context.Context, name, email, password string) (api.User, error) {
	resp, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return api.User{}, err
	}
	s.mu.Lock()
	s.user = resp.User
	s.loggedIn = true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveSession(ctx, resp.Token, resp.User); err != nil {
			slog.ErrorContext(ctx, "Failed to persist session", "error", err)
		}
	}
	s.cache.Clear()
	return resp.User, nil
}

// Logout tears the session down locally. The backend holds no server-side
// session state beyond the token.
func (s *Ledger) Logout(ctx context.Context) {
	s.teardown(ctx)
}

func (s *Ledger) teardown(ctx context.Context) {
	s.api.SetToken("")
	s.mu.Lock()
	s.user = api.User{}
	s.loggedIn = false
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ClearSession(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to clear persisted session", "error", err)
		}
	}
	s.cache.Clear()
	slog.InfoContext(ctx, "Session cleared")
}

// guard takes the in-flight lock for one named mutation. The second
// concurrent submission of the same mutation is rejected, which is the
// rapid-double-click protection the UI relies on.
func (s *Ledger) guard(op string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[op] {
		return nil, ErrMutationPending
	}
	s.inflight[op] = true
	return func() {
		s.mu.Lock()
		delete(s.inflight, op)
		s.mu.Unlock()
	}, nil
}

// Reads. Each read builds its canonical key and goes through the cache.

func (s *Ledger) Accounts(ctx context.Context, f api.AccountFilter) ([]core.Account, error) {
	key := query.NewKey(query.GroupAccounts).WithFilter(f)
	return query.Get(ctx, s.cache, key, func(ctx context.Context) ([]core.Account, error) {
		return s.api.Accounts(ctx, f)
	})
}

// Portfolio returns the month-scoped account list together with its
// aggregate totals.
func (s *Ledger) Portfolio(ctx context.Context, f api.AccountFilter) ([]core.Account, core.PortfolioTotals, error) {
	accounts, err := s.Accounts(ctx, f)
	if err != nil {
		return nil, core.PortfolioTotals{}, err
	}
	return accounts, core.AggregatePortfolio(accounts), nil
}

func (s *Ledger) AccountDetail(ctx context.Context, id int64, f api.DetailFilter) (api.AccountDetail, error) {
	key := query.NewKey(query.GroupAccounts, fmt.Sprintf("%d", id)).WithFilter(f)
	return query.Get(ctx, s.cache, key, func(ctx context.Context) (api.AccountDetail, error) {
		return s.api.AccountDetail(ctx, id, f)
	})
}

func (s *Ledger) Transactions(ctx context.Context, f api.TransactionFilter) (api.Page[core.Transaction], error) {
	key := query.NewKey(query.GroupTransactions).WithFilter(f)
	return query.Get(ctx, s.cache, key, func(ctx context.Context) (api.Page[core.Transaction], error) {
		return s.api.Transactions(ctx, f)
	})
}

// Categories returns user-facing categories, with the system-managed
// transfer categories filtered out.
func (s *Ledger) Categories(ctx context.Context) ([]core.Category, error) {
	key := query.NewKey(query.GroupCategories)
	cats, err := query.Get(ctx, s.cache, key, func(ctx context.Context) ([]core.Category, error) {
		return s.api.Categories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return core.VisibleCategories(cats), nil
}

func (s *Ledger) Budgets(ctx context.Context, f api.BudgetFilter) ([]core.Budget, error) {
	key := query.NewKey(query.GroupBudgets).WithFilter(f)
	return query.Get(ctx, s.cache, key, func(ctx context.Context) ([]core.Budget, error) {
		return s.api.Budgets(ctx, f)
	})
}

func (s *Ledger) Dashboard(ctx context.Context, year, month int) (api.DashboardStats, error) {
	key := query.NewKey(query.GroupDashboard).WithFilter(api.AccountFilter{Year: year, Month: month})
	return query.Get(ctx, s.cache, key, func(ctx context.Context) (api.DashboardStats, error) {
		return s.api.Dashboard(ctx, year, month)
	})
}

func (s *Ledger) Notifications(ctx context.Context) ([]api.Notification, error) {
	key := query.NewKey(query.GroupAdminNotifications)
	return query.Get(ctx, s.cache, key, func(ctx context.Context) ([]api.Notification, error) {
		return s.api.Notifications(ctx)
	})
}

// UnreadNotificationCount is the badge figure: server notifications minus
// the locally persisted read set.
func (s *Ledger) UnreadNotificationCount(ctx context.Context) (int, error) {
	ns, err := s.Notifications(ctx)
	if err != nil {
		return 0, err
	}
	user, ok := s.User()
	if !ok {
		return len(ns), nil
	}
	if s.store == nil {
		return len(ns), nil
	}
	read, err := s.store.ReadNotifications(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range ns {
		if !read[n.ID] {
			count++
		}
	}
	return count, nil
}

// MarkNotificationRead persists a dismissal locally and refreshes the badge.
func (s *Ledger) MarkNotificationRead(ctx context.Context, notificationID int64) error {
	user, ok := s.User()
	if !ok {
		return ErrNotAuthenticated
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.MarkNotificationRead(ctx, user.ID, notificationID); err != nil {
		return err
	}
	s.cache.Invalidate(query.GroupNotificationBadge)
	return nil
}

// Mutations. Validation happens before the network call; invalidation only
// after a successful response.

// validateTransaction screens a payload before any network call. The entry
// type must match the declared type of the chosen category; the category is
// resolved from the cached list, so the check costs no extra request. An
// unknown category id is left for the server to reject.
func (s *Ledger) validateTransaction(ctx context.Context, p api.TransactionPayload) error {
	tx := core.Transaction{
		Type:       p.Type,
		Amount:     fmt.Sprintf("%g", p.Amount),
		AccountID:  p.AccountID,
		CategoryID: p.CategoryID,
		Date:       p.Date,
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	if cat, ok := s.lookupCategory(ctx, p.CategoryID); ok {
		return tx.ValidateAgainst(cat)
	}
	return nil
}

func (s *Ledger) lookupCategory(ctx context.Context, id int64) (core.Category, bool) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return core.Category{}, false
	}
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Ledger) CreateTransaction(ctx context.Context, p api.TransactionPayload) (api.TransactionResult, error) {
	if err := s.validateTransaction(ctx, p); err != nil {
		return api.TransactionResult{}, err
	}

	release, err := s.guard("transaction:create")
	if err != nil {
		return api.TransactionResult{}, err
	}
	defer release()

	res, err := s.api.CreateTransaction(ctx, p)
	if err != nil {
		return api.TransactionResult{}, err
	}
	s.cache.InvalidateAfter(query.MutationTransaction)
	return res, nil
}

func (s *Ledger) UpdateTransaction(ctx context.Context, id int64, p api.TransactionPayload) (api.TransactionResult, error) {
	if err := s.validateTransaction(ctx, p); err != nil {
		return api.TransactionResult{}, err
	}

	release, err := s.guard(fmt.Sprintf("transaction:update:%d", id))
	if err != nil {
		return api.TransactionResult{}, err
	}
	defer release()

	res, err := s.api.UpdateTransaction(ctx, id, p)
	if err != nil {
		return api.TransactionResult{}, err
	}
	s.cache.InvalidateAfter(query.MutationTransaction)
	return res, nil
}

func (s *Ledger) DeleteTransaction(ctx context.Context, id int64) error {
	release, err := s.guard(fmt.Sprintf("transaction:delete:%d", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateAfter(query.MutationTransaction)
	return nil
}

// CheckBudget is a pre-submission advisory; it neither caches nor
// invalidates anything.
func (s *Ledger) CheckBudget(ctx context.Context, p api.TransactionPayload) (api.BudgetCheck, error) {
	return s.api.CheckBudget(ctx, p)
}

// Transfer validates client-side first: a rejected transfer makes no network
// call and leaves every cache entry untouched.
func (s *Ledger) Transfer(ctx context.Context, tr core.TransferRequest) (api.TransferResult, error) {
	if err := tr.Validate(); err != nil {
		return api.TransferResult{}, err
	}

	release, err := s.guard("transfer")
	if err != nil {
		return api.TransferResult{}, err
	}
	defer release()

	res, err := s.api.Transfer(ctx, tr)
	if err != nil {
		return api.TransferResult{}, err
	}
	s.cache.InvalidateAfter(query.MutationTransfer)
	return res, nil
}

func (s *Ledger) CreateBudget(ctx context.Context, p api.BudgetPayload) (core.Budget, error) {
	release, err := s.guard("budget:create")
	if err != nil {
		return core.Budget{}, err
	}
	defer release()

	b, err := s.api.CreateBudget(ctx, p)
	if err != nil {
		return core.Budget{}, err
	}
	s.cache.InvalidateAfter(query.MutationBudget)
	return b, nil
}

func (s *Ledger) UpdateBudget(ctx context.Context, id int64, p api.BudgetPayload) (core.Budget, error) {
	release, err := s.guard(fmt.Sprintf("budget:update:%d", id))
	if err != nil {
		return core.Budget{}, err
	}
	defer release()

	b, err := s.api.UpdateBudget(ctx, id, p)
	if err != nil {
		return core.Budget{}, err
	}
	s.cache.InvalidateAfter(query.MutationBudget)
	return b, nil
}

func (s *Ledger) DeleteBudget(ctx context.Context, id int64) error {
	release, err := s.guard(fmt.Sprintf("budget:delete:%d", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteBudget(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateAfter(query.MutationBudget)
	return nil
}

func (s *Ledger) CreateCategory(ctx context.Context, p api.CategoryPayload) (core.Category, error) {
	cat := core.Category{Name: p.Name, Type: p.Type, Color: p.Color}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	release, err := s.guard("category:create")
	if err != nil {
		return core.Category{}, err
	}
	defer release()

	created, err := s.api.CreateCategory(ctx, p)
	if err != nil {
		return core.Category{}, err
	}
	s.cache.InvalidateAfter(query.MutationCategory)
	return created, nil
}

func (s *Ledger) UpdateCategory(ctx context.Context, id int64, p api.CategoryPayload) (core.Category, error) {
	cat := core.Category{Name: p.Name, Type: p.Type, Color: p.Color}
	if err := cat.Validate(); err != nil {
		return core.Category{}, err
	}

	release, err := s.guard(fmt.Sprintf("category:update:%d", id))
	if err != nil {
		return core.Category{}, err
	}
	defer release()

	updated, err := s.api.UpdateCategory(ctx, id, p)
	if err != nil {
		return core.Category{}, err
	}
	s.cache.InvalidateAfter(query.MutationCategory)
	return updated, nil
}

func (s *Ledger) DeleteCategory(ctx context.Context, id int64) error {
	release, err := s.guard(fmt.Sprintf("category:delete:%d", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateAfter(query.MutationCategory)
	return nil
}

func (s *Ledger) CreateAccount(ctx context.Context, p api.AccountPayload) (core.Account, error) {
	release, err := s.guard("account:create")
	if err != nil {
		return core.Account{}, err
	}
	defer release()

	a, err := s.api.CreateAccount(ctx, p)
	if err != nil {
		return core.Account{}, err
	}
	s.cache.InvalidateAfter(query.MutationAccount)
	return a, nil
}

func (s *Ledger) UpdateAccount(ctx context.Context, id int64, p api.AccountPayload) (core.Account, error) {
	release, err := s.guard(fmt.Sprintf("account:update:%d", id))
	if err != nil {
		return core.Account{}, err
	}
	defer release()

	a, err := s.api.UpdateAccount(ctx, id, p)
	if err != nil {
		return core.Account{}, err
	}
	s.cache.InvalidateAfter(query.MutationAccount)
	return a, nil
}

func (s *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	release, err := s.guard(fmt.Sprintf("account:delete:%d", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateAfter(query.MutationAccount)
	return nil
}

func (s *Ledger) CreateNotification(ctx context.Context, title, message string) (api.Notification, error) {
	release, err := s.guard("notification:create")
	if err != nil {
		return api.Notification{}, err
	}
	defer release()

	n, err := s.api.CreateNotification(ctx, title, message)
	if err != nil {
		return api.Notification{}, err
	}
	s.cache.InvalidateAfter(query.MutationNotification)
	return n, nil
}

func (s *Ledger) DeleteNotification(ctx context.Context, id int64) error {
	release, err := s.guard(fmt.Sprintf("notification:delete:%d", id))
	if err != nil {
		return err
	}
	defer release()

	if err := s.api.DeleteNotification(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateAfter(query.MutationNotification)
	return nil
}

// SavePreferences persists the per-user UI preferences.
func (s *Ledger) SavePreferences(ctx context.Context, p storage.Preferences) error {
	user, ok := s.User()
	if !ok {
		return ErrNotAuthenticated
	}
	if s.store == nil {
		return nil
	}
	return s.store.SavePreferences(ctx, user.ID, p)
}

// Preferences loads the per-user UI preferences.
func (s *Ledger) Preferences(ctx context.Context) (storage.Preferences, error) {
	user, ok := s.User()
	if !ok {
		return storage.Preferences{}, ErrNotAuthenticated
	}
	if s.store == nil {
		return storage.Preferences{}, nil
	}
	return s.store.LoadPreferences(ctx, user.ID)
}

// Cache exposes the underlying query cache for wiring (subscriptions, the
// AMQP invalidation worker).
func (s *Ledger) Cache() *query.Cache {
	return s.cache
}
