package query

import (
	"testing"

	"saldo/internal/api"
	"saldo/internal/core"
)

func TestKeyCanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "bare group",
			key:  NewKey(GroupAccounts),
			want: "accounts",
		},
		{
			name: "group with qualifier",
			key:  NewKey(GroupAccounts, "42"),
			want: "accounts/42",
		},
		{
			name: "filter fields sorted regardless of struct order",
			key:  NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Year: 2025, Month: 1, Type: core.Income}),
			want: "transactions?month=1&type=income&year=2025",
		},
		{
			name: "empty filter leaves key unchanged",
			key:  NewKey(GroupTransactions).WithFilter(api.TransactionFilter{}),
			want: "transactions",
		},
		{
			name: "nil filter leaves key unchanged",
			key:  NewKey(GroupBudgets).WithFilter(nil),
			want: "budgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Deep-equal filters must canonicalize to the same key; filters differing in
// any field must not.
func TestKeyEquality(t *testing.T) {
	a := NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Month: 1, Year: 2025})
	b := NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Month: 1, Year: 2025})
	if a.String() != b.String() {
		t.Errorf("deep-equal filters produced distinct keys: %q vs %q", a, b)
	}

	c := NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Month: 2, Year: 2025})
	if a.String() == c.String() {
		t.Errorf("filters differing in month produced identical key %q", a)
	}
}

// Omitting a field and passing its default sentinel must produce the same
// canonical key, the normalization convention that prevents silent cache
// fragmentation across call sites.
func TestKeyDefaultSentinelNormalization(t *testing.T) {
	omitted := NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Month: 3})
	explicitAll := NewKey(GroupTransactions).WithFilter(api.TransactionFilter{Month: 3, Type: "all", Page: 1})
	if omitted.String() != explicitAll.String() {
		t.Errorf("sentinel defaults fragmented the cache: %q vs %q", omitted, explicitAll)
	}
}

func TestKeyGroup(t *testing.T) {
	k := NewKey(GroupAccounts, "7").WithFilter(api.DetailFilter{Page: 2})
	if k.Group() != GroupAccounts {
		t.Errorf("Group() = %q, want %q", k.Group(), GroupAccounts)
	}
}
