package core

import "testing"

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestAggregatePortfolio(t *testing.T) {
	accounts := []Account{
		{
			ID:                1,
			Balance:           "100.00",
			CumulativeBalance: floatPtr(250),
			MonthIncome:       300,
			MonthExpenses:     50,
			AccountExisted:    boolPtr(true),
		},
		{
			ID:          2,
			Balance:     "1200.50", // no cumulative balance: falls back to parsed string
			MonthIncome: 10,
		},
		{
			ID:             3,
			Balance:        "500", // postdates the selected month: excluded entirely
			MonthIncome:    999,
			MonthExpenses:  999,
			AccountExisted: boolPtr(false),
		},
	}

	got := AggregatePortfolio(accounts)

	if want := 250 + 1200.50; got.TotalBalance != want {
		t.Errorf("TotalBalance = %v, want %v", got.TotalBalance, want)
	}
	if want := 310.0; got.TotalMonthlyIncome != want {
		t.Errorf("TotalMonthlyIncome = %v, want %v", got.TotalMonthlyIncome, want)
	}
	if want := 50.0; got.TotalMonthlyExpenses != want {
		t.Errorf("TotalMonthlyExpenses = %v, want %v", got.TotalMonthlyExpenses, want)
	}
	if got.ActiveAccountCount != 2 {
		t.Errorf("ActiveAccountCount = %d, want 2", got.ActiveAccountCount)
	}
}

func TestAggregatePortfolioNonNumericBalance(t *testing.T) {
	accounts := []Account{
		{ID: 1, Balance: "not-a-number"},
		{ID: 2, Balance: "100"},
	}

	got := AggregatePortfolio(accounts)

	if got.TotalBalance != 100 {
		t.Errorf("TotalBalance = %v, want 100 (non-numeric balance must count as 0, not NaN)", got.TotalBalance)
	}
	if got.TotalBalance != got.TotalBalance {
		t.Error("TotalBalance is NaN")
	}
	if got.ActiveAccountCount != 2 {
		t.Errorf("ActiveAccountCount = %d, want 2", got.ActiveAccountCount)
	}
}

func TestAggregatePortfolioEmpty(t *testing.T) {
	got := AggregatePortfolio(nil)
	if got.TotalBalance != 0 || got.ActiveAccountCount != 0 {
		t.Errorf("empty list should produce zero totals, got %+v", got)
	}
}

func TestDisplayBalance(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    float64
	}{
		{
			name:    "cumulative balance wins over raw balance",
			account: Account{Balance: "100", CumulativeBalance: floatPtr(42)},
			want:    42,
		},
		{
			name:    "missing cumulative falls back to parsed balance",
			account: Account{Balance: "1200.50"},
			want:    1200.50,
		},
		{
			name:    "account that did not exist displays zero",
			account: Account{Balance: "500", CumulativeBalance: floatPtr(500), AccountExisted: boolPtr(false)},
			want:    0,
		},
		{
			name:    "non-numeric balance displays zero",
			account: Account{Balance: "garbage"},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.DisplayBalance(); got != tt.want {
				t.Errorf("DisplayBalance() = %v, want %v", got, tt.want)
			}
		})
	}
}
