// Package view holds UI-facing state controllers. They own filter and
// pagination state and decide when a refetch is needed; the data itself
// always comes from the api/query layers.
package view

import (
	"context"
	"sync"

	"saldo/internal/api"
	"saldo/internal/core"
)

// DetailLoader fetches one account's scoped history. *api.Client satisfies
// it; tests substitute fakes.
type DetailLoader interface {
	AccountDetail(ctx context.Context, id int64, f api.DetailFilter) (api.AccountDetail, error)
}

// AccountDetail maintains the independent filter (all/income/expense) and
// page state of a single account's transaction history view.
//
// State rules:
//   - changing the filter always resets the page to 1, before any new data
//     arrives, so an out-of-range page can never be carried into a shorter
//     filtered result set;
//   - page navigation is clamped by the server's pagination metadata;
//   - the previously resolved data stays visible while a refetch is in
//     flight and is replaced only when the new page resolves;
//   - a response that arrives after its request was superseded is dropped,
//     not treated as an error.
type AccountDetail struct {
	loader    DetailLoader
	accountID int64
	perPage   int

	mu      sync.Mutex
	filter  core.EntryType // "" means all
	page    int
	current *api.AccountDetail
	loading int
	seq     uint64 // bumped by every state change; stale responses are dropped
}

// NewAccountDetail creates a controller for one account's history view.
func NewAccountDetail(loader DetailLoader, accountID int64, perPage int) *AccountDetail {
	return &AccountDetail{
		loader:    loader,
		accountID: accountID,
		perPage:   perPage,
		page:      1,
	}
}

// Filter returns the active type filter, "" for all.
func (v *AccountDetail) Filter() core.EntryType {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Page returns the page the view is displaying or about to display.
func (v *AccountDetail) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// Current returns the last resolved data, nil before the first load. It is
// intentionally not blanked while a refetch is in flight.
func (v *AccountDetail) Current() *api.AccountDetail {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Loading reports whether a refetch is in flight.
func (v *AccountDetail) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading > 0
}

func (v *AccountDetail) lastPageLocked() int {
	if v.current == nil || v.current.Transactions.LastPage < 1 {
		return 1
	}
	return v.current.Transactions.LastPage
}

// CanPrev reports whether "previous" is enabled.
func (v *AccountDetail) CanPrev() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page > 1
}

// CanNext reports whether "next" is enabled, per the server-reported last
// page.
func (v *AccountDetail) CanNext() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page < v.lastPageLocked()
}

// SetFilter switches the type filter and resets the page to 1. It only
// mutates state; the caller follows up with Refresh.
func (v *AccountDetail) SetFilter(t core.EntryType) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t == "all" {
		t = ""
	}
	if t == v.filter {
		return
	}
	v.filter = t
	v.page = 1
	v.seq++
}

// NextPage advances one page, clamped to the server's last page. It reports
// whether the page actually changed.
func (v *AccountDetail) NextPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page >= v.lastPageLocked() {
		return false
	}
	v.page++
	v.seq++
	return true
}

// PrevPage goes back one page, clamped at page 1.
func (v *AccountDetail) PrevPage() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page <= 1 {
		return false
	}
	v.page--
	v.seq++
	return true
}

// Refresh fetches the page for the current filter/page state and commits it
// unless the state moved on while the request was in flight.
func (v *AccountDetail) Refresh(ctx context.Context) error {
	v.mu.Lock()
	f := api.DetailFilter{Type: v.filter, Page: v.page, PerPage: v.perPage}
	seq := v.seq
	v.loading++
	v.mu.Unlock()

	detail, err := v.loader.AccountDetail(ctx, v.accountID, f)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading--
	if v.seq != seq {
		// Superseded by a newer filter/page change; drop the response,
		// and its error, silently.
		return nil
	}
	if err != nil {
		return err
	}
	v.current = &detail
	return nil
}
