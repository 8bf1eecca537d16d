package aggregate

import (
	"time"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many transactions the dashboard lists.
const RecentLimit = 5

// Summary is the dashboard of now's month.
type Summary struct {
	Month            string             `json:"month"`
	Spent            decimal.Decimal    `json:"spent"`
	PriorMonthSpent  decimal.Decimal    `json:"priorMonthSpent"`
	GrossBudget      decimal.Decimal    `json:"grossBudget"`
	SavingsDeduction decimal.Decimal    `json:"savingsDeduction"`
	EffectiveBudget  decimal.Decimal    `json:"effectiveBudget"`
	Remaining        decimal.Decimal    `json:"remaining"`
	Series           []DayPoint         `json:"series"`
	Recent           []core.Transaction `json:"recent"`
}

// Dashboard computes the month-to-date summary for now.
func Dashboard(transactions []core.Transaction, budgets []core.MonthlyBudget, savings []core.SavingsProject, now time.Time, n Normalizer) Summary {
	gross := CurrentMonthBudgetTotal(budgets, now)
	deduction := SavingsDeduction(savings, n)
	effective := gross.Sub(deduction)
	spent := CurrentMonthTotal(transactions, now)

	return Summary{
		Month:            KeyOf(Month, now),
		Spent:            spent,
		PriorMonthSpent:  PriorMonthTotal(transactions, now),
		GrossBudget:      gross,
		SavingsDeduction: deduction,
		EffectiveBudget:  effective,
		Remaining:        effective.Sub(spent),
		Series:           CumulativeMTD(transactions, now),
		Recent:           Recent(transactions, RecentLimit),
	}
}

// Recent returns up to limit transactions, newest first.
func Recent(transactions []core.Transaction, limit int) []core.Transaction {
	sorted := make([]core.Transaction, len(transactions))
	copy(sorted, transactions)
	SortNewestFirst(sorted)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
