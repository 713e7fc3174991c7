package core

import (
	"errors"
	"strings"
	"time"
)

const (
	AccountBank       AccountType = "bank"
	AccountCash       AccountType = "cash"
	AccountCreditCard AccountType = "credit_card"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

// Reserved category names tagging the two legs of an inter-account transfer.
// They are system-managed and never exposed in user-facing category lists.
const (
	TransferInCategory  = "Transfer In"
	TransferOutCategory = "Transfer Out"
)

type (
	AccountType string

	EntryType string

	Date struct {
		time.Time
	}

	Account struct {
		ID             int64       `json:"id"`
		Name           string      `json:"name"`
		Type           AccountType `json:"type"`
		Balance        string      `json:"balance"`
		InitialBalance string      `json:"initial_balance,omitempty"`

		// Month-scoped fields, present when the list was requested
		// for a specific year+month.
		MonthIncome           float64  `json:"month_income"`
		MonthExpenses         float64  `json:"month_expenses"`
		MonthTransactionCount int      `json:"month_transaction_count"`
		CumulativeBalance     *float64 `json:"cumulative_balance,omitempty"`
		AccountExisted        *bool    `json:"account_existed,omitempty"`
	}

	Category struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		Type        EntryType `json:"type"`
		Color       string    `json:"color"`
		Description string    `json:"description,omitempty"`
	}

	Transaction struct {
		ID          int64     `json:"id"`
		Type        EntryType `json:"type"`
		Amount      string    `json:"amount"`
		AccountID   int64     `json:"account_id"`
		CategoryID  int64     `json:"category_id"`
		Date        string    `json:"date"` // calendar date, YYYY-MM-DD
		Description string    `json:"description,omitempty"`
	}

	Budget struct {
		ID         int64   `json:"id"`
		CategoryID int64   `json:"category_id"`
		Amount     string  `json:"amount"`
		StartDate  string  `json:"start_date"`
		EndDate    string  `json:"end_date"`
		IsLimiter  bool    `json:"is_limiter,omitempty"`
		Spent      float64 `json:"spent"`      // server-computed, read-only
		Percentage float64 `json:"percentage"` // server-computed, read-only
	}

	// TransferRequest materializes server-side as two linked transactions
	// created atomically; it is never a stored entity on its own.
	TransferRequest struct {
		FromAccountID int64   `json:"from_account_id"`
		ToAccountID   int64   `json:"to_account_id"`
		Amount        float64 `json:"amount"`
		Date          string  `json:"date"`
		Description   string  `json:"description,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDate        = errors.New("empty date")
	ErrMissingAccount   = errors.New("missing account")
	ErrMissingCategory  = errors.New("missing category")
	ErrReservedCategory = errors.New("reserved category name")
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrSameAccount      = errors.New("source and destination accounts must differ")
	ErrTypeMismatch     = errors.New("transaction type does not match category type")
)

// IsReservedCategory reports whether name is one of the system-managed
// transfer categories.
func IsReservedCategory(name string) bool {
	n := strings.TrimSpace(name)
	return n == TransferInCategory || n == TransferOutCategory
}

// VisibleCategories filters the system-managed transfer categories out of a
// server category list. User-facing lists and dropdowns must only ever see
// the result of this filter.
func VisibleCategories(cats []Category) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if IsReservedCategory(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

// String renders the calendar date the way the backend expects it.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if IsReservedCategory(c.Name) {
		return ErrReservedCategory
	}
	if !c.Type.Valid() {
		return ErrInvalidEntryType
	}
	return nil
}

// Validate checks a transaction before it is sent through a normal
// (non-transfer) flow.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidEntryType
	}
	if t.AccountID == 0 {
		return ErrMissingAccount
	}
	if t.CategoryID == 0 {
		return ErrMissingCategory
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	if amt := ParseAmount(t.Amount); amt <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateAgainst additionally enforces type consistency with the declared
// category type.
func (t Transaction) ValidateAgainst(c Category) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Type != c.Type {
		return ErrTypeMismatch
	}
	return nil
}

// Validate rejects a transfer before any network call is made. The server is
// the authority on insufficient-balance enforcement; everything here is
// cheap client-side screening.
func (tr TransferRequest) Validate() error {
	if tr.FromAccountID == 0 || tr.ToAccountID == 0 {
		return ErrMissingAccount
	}
	if tr.FromAccountID == tr.ToAccountID {
		return ErrSameAccount
	}
	if tr.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(tr.Date) == "" {
		return ErrEmptyDate
	}
	return nil
}

// Existed reports whether the account already existed in the selected month.
// A nil flag means the server did not scope the list to a month and the
// account counts as existing.
func (a Account) Existed() bool {
	return a.AccountExisted == nil || *a.AccountExisted
}

// DisplayBalance is the balance shown in a month-scoped list: the cumulative
// balance when the server computed one, the parsed raw balance otherwise, and
// exactly 0 for accounts that did not yet exist in the selected month.
func (a Account) DisplayBalance() float64 {
	if !a.Existed() {
		return 0
	}
	if a.CumulativeBalance != nil {
		return *a.CumulativeBalance
	}
	return ParseAmount(a.Balance)
}
