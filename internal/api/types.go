package api

import (
	"net/url"
	"strconv"

	"saldo/internal/core"
)

type (
	User struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	AuthResponse struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}

	// Page is the backend's pagination envelope.
	Page[T any] struct {
		Data        []T `json:"data"`
		Total       int `json:"total"`
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
	}

	AccountStats struct {
		InitialBalance float64 `json:"initial_balance"`
		TotalIncome    float64 `json:"total_income"`
		TotalExpenses  float64 `json:"total_expenses"`
		CurrentBalance float64 `json:"current_balance"`
	}

	AccountDetail struct {
		Account      core.Account           `json:"account"`
		Transactions Page[core.Transaction] `json:"transactions"`
		Stats        AccountStats           `json:"stats"`
	}

	BudgetInfo struct {
		Limit      float64 `json:"limit"`
		Spent      float64 `json:"spent"`
		Remaining  float64 `json:"remaining"`
		Percentage float64 `json:"percentage"`
	}

	BudgetCheck struct {
		HasBudget      bool        `json:"has_budget"`
		WarningLevel   string      `json:"warning_level"` // none|info|warning|error
		WarningMessage string      `json:"warning_message,omitempty"`
		CanProceed     bool        `json:"can_proceed"`
		BudgetInfo     *BudgetInfo `json:"budget_info,omitempty"`
	}

	// TransactionResult is the create/update response; the server may attach
	// an advisory budget warning even when the write succeeded.
	TransactionResult struct {
		Transaction   core.Transaction `json:"transaction"`
		BudgetWarning string           `json:"budget_warning,omitempty"`
		BudgetInfo    *BudgetInfo      `json:"budget_info,omitempty"`
	}

	// TransferResult carries the two linked legs created atomically by the
	// server.
	TransferResult struct {
		OutTransaction core.Transaction `json:"out_transaction"`
		InTransaction  core.Transaction `json:"in_transaction"`
	}

	DashboardStats struct {
		TotalIncome    float64       `json:"total_income"`
		TotalExpenses  float64       `json:"total_expenses"`
		Balance        float64       `json:"balance"`
		BudgetProgress []core.Budget `json:"budget_progress"`
	}

	Notification struct {
		ID        int64  `json:"id"`
		Title     string `json:"title"`
		Message   string `json:"message"`
		CreatedAt string `json:"created_at"`
	}
)

// Filter builders. Every filter encodes to url.Values with zero values and
// "all" sentinels omitted, so the same logical query always produces the
// same parameter set no matter which call site built it. The query layer
// relies on this for canonical cache keys.

type AccountFilter struct {
	Year  int
	Month int // 1-12
}

func (f AccountFilter) Params() url.Values {
	v := url.Values{}
	if f.Year != 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		v.Set("month", strconv.Itoa(f.Month))
	}
	return v
}

type TransactionFilter struct {
	Type       core.EntryType // "all" and "" both mean no type filter
	AccountID  int64
	CategoryID int64
	Year       int
	Month      int
	Search     string
	Page       int
	PerPage    int
}

func (f TransactionFilter) Params() url.Values {
	v := url.Values{}
	if f.Type != "" && f.Type != "all" {
		v.Set("type", string(f.Type))
	}
	if f.AccountID != 0 {
		v.Set("account_id", strconv.FormatInt(f.AccountID, 10))
	}
	if f.CategoryID != 0 {
		v.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.Year != 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		v.Set("month", strconv.Itoa(f.Month))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage != 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return v
}

// DetailFilter scopes a single account's transaction history.
type DetailFilter struct {
	Type    core.EntryType
	Page    int
	PerPage int
}

func (f DetailFilter) Params() url.Values {
	v := url.Values{}
	if f.Type != "" && f.Type != "all" {
		v.Set("type", string(f.Type))
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage != 0 {
		v.Set("per_page", strconv.Itoa(f.PerPage))
	}
	return v
}

type BudgetFilter struct {
	Year  int
	Month int
}

func (f BudgetFilter) Params() url.Values {
	v := url.Values{}
	if f.Year != 0 {
		v.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		v.Set("month", strconv.Itoa(f.Month))
	}
	return v
}

// Write payloads.

type TransactionPayload struct {
	Type        core.EntryType `json:"type"`
	Amount      float64        `json:"amount"`
	AccountID   int64          `json:"account_id"`
	CategoryID  int64          `json:"category_id"`
	Date        string         `json:"date"`
	Description string         `json:"description,omitempty"`
}

type BudgetPayload struct {
	CategoryID int64   `json:"category_id"`
	Amount     float64 `json:"amount"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	IsLimiter  bool    `json:"is_limiter,omitempty"`
}

type CategoryPayload struct {
	Name        string         `json:"name"`
	Type        core.EntryType `json:"type"`
	Color       string         `json:"color"`
	Description string         `json:"description,omitempty"`
}

type AccountPayload struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	InitialBalance float64          `json:"initial_balance,omitempty"`
}
