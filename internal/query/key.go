// Package query implements the read-through cache between the UI surface and
// the remote backend: canonical query keys, a freshness window with
// stale-while-revalidate, per-key request deduplication, and the
// cross-entity invalidation rules that fire after successful mutations.
package query

import (
	"net/url"
	"strings"
)

// Entity groups. A key's group is the unit of invalidation: invalidating a
// group marks every key under it, whatever its qualifiers or filter.
const (
	GroupAccounts           = "accounts"
	GroupTransactions       = "transactions"
	GroupCategories         = "categories"
	GroupBudgets            = "budgets"
	GroupDashboard          = "dashboard"
	GroupDashboardBudgets   = "dashboard-budgets"
	GroupNotifications      = "notifications"
	GroupNotificationBadge  = "notification-badge"
	GroupAdminNotifications = "admin-notifications"
	GroupAdminUsers         = "admin-users"
	GroupAdminFeedback      = "admin-feedback"
)

// Filterer is anything that encodes itself as request parameters. All filter
// builders in the api package omit zero values and "all" sentinels, so two
// deep-equal filters always canonicalize identically and an omitted field can
// never collide with an explicitly passed default.
type Filterer interface {
	Params() url.Values
}

// Key identifies one distinct server query: an entity group, optional
// qualifiers (e.g. an account id), and an optional filter. Two keys are equal
// iff all three parts are equal; equality is by canonical string, never by
// reference.
type Key struct {
	group      string
	qualifiers []string
	filter     url.Values
}

// NewKey builds a key for an entity group with optional qualifiers.
func NewKey(group string, qualifiers ...string) Key {
	return Key{group: group, qualifiers: qualifiers}
}

// WithFilter attaches a filter to the key. A nil filter or one that encodes
// to nothing leaves the key unchanged, which makes "no filter" and "filter
// with only defaults" the same key on purpose.
func (k Key) WithFilter(f Filterer) Key {
	if f == nil {
		return k
	}
	params := f.Params()
	if len(params) == 0 {
		return k
	}
	k.filter = params
	return k
}

// Group returns the key's entity group.
func (k Key) Group() string {
	return k.group
}

// String renders the canonical form used for map lookups and request
// deduplication. url.Values.Encode sorts by key, so field order at the call
// site cannot fragment the cache.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.group)
	for _, q := range k.qualifiers {
		b.WriteByte('/')
		b.WriteString(q)
	}
	if len(k.filter) > 0 {
		b.WriteByte('?')
		b.WriteString(k.filter.Encode())
	}
	return b.String()
}
