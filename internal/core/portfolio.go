package core

// PortfolioTotals is the month-scoped aggregate displayed above the account
// list. Accounts that did not yet exist in the selected month still render
// (dimmed) but contribute nothing here.
type PortfolioTotals struct {
	TotalBalance         float64
	TotalMonthlyIncome   float64
	TotalMonthlyExpenses float64
	ActiveAccountCount   int
}

// AggregatePortfolio computes portfolio totals from a month-scoped account
// list. This is the single shared implementation; every consumer (account
// list, transfer picker) goes through it so the figures cannot drift between
// call sites. The function is pure; callers recompute whenever the account
// list or the selected year/month changes.
func AggregatePortfolio(accounts []Account) PortfolioTotals {
	var t PortfolioTotals
	for _, a := range accounts {
		if !a.Existed() {
			continue
		}
		if a.CumulativeBalance != nil {
			t.TotalBalance += *a.CumulativeBalance
		} else {
			t.TotalBalance += ParseAmount(a.Balance)
		}
		t.TotalMonthlyIncome += a.MonthIncome
		t.TotalMonthlyExpenses += a.MonthExpenses
		t.ActiveAccountCount++
	}
	return t
}
