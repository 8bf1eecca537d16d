package aggregate

import (
	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// Overspend is a category whose month spend exceeds its allocation.
type Overspend struct {
	Category core.Category   `json:"category"`
	Spent    decimal.Decimal `json:"spent"`
	Budget   decimal.Decimal `json:"budget"`
}

// Over is how much the allocation was exceeded by.
func (o Overspend) Over() decimal.Decimal {
	return o.Spent.Sub(o.Budget)
}

// OverBudget lists the categories of month whose spend exceeds a positive
// allocation, in enumeration order. Months without a budget report nothing.
func OverBudget(transactions []core.Transaction, budgets []core.MonthlyBudget, month string) []Overspend {
	var alloc map[core.Category]decimal.Decimal
	for _, b := range budgets {
		if b.Month == month {
			alloc = b.Categories
			break
		}
	}
	if len(alloc) == 0 {
		return nil
	}

	spent := make(map[core.Category]decimal.Decimal)
	for _, t := range transactions {
		if Key(Month, t.Date) == month {
			spent[t.Category] = spent[t.Category].Add(t.Amount)
		}
	}

	var out []Overspend
	for _, c := range core.Categories() {
		budget, ok := alloc[c]
		if !ok || !budget.IsPositive() {
			continue
		}
		if s := spent[c]; s.GreaterThan(budget) {
			out = append(out, Overspend{Category: c, Spent: s, Budget: budget})
		}
	}
	return out
}
