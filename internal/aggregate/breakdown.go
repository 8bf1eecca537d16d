package aggregate

import (
	"sort"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// CategoryAmount is one slice of a category breakdown.
type CategoryAmount struct {
	Category core.Category   `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryBreakdown sums the selected period per category. Stored names are
// matched case-insensitively and unknown ones count as Other. Categories with
// nothing spent are left out; the rest are ordered by amount, largest first,
// with ties in enumeration order.
func CategoryBreakdown(transactions []core.Transaction, g Granularity, selection string) []CategoryAmount {
	sums := make(map[core.Category]decimal.Decimal)
	for _, t := range transactions {
		if Key(g, t.Date) == selection {
			c := core.MatchCategory(string(t.Category))
			sums[c] = sums[c].Add(t.Amount)
		}
	}

	var out []CategoryAmount
	for _, c := range core.Categories() {
		if amount := sums[c]; amount.IsPositive() {
			out = append(out, CategoryAmount{Category: c, Amount: amount})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
