package aggregate

import (
	"strings"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// Criteria narrows a transaction list. The zero value keeps everything.
type Criteria struct {
	// Query matches description or vendor, case-insensitively.
	Query    string
	Category core.Category
	// HideRecurring drops transactions flagged as recurring.
	HideRecurring bool
	// Min and Max bound the amount, inclusively, when set.
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (c Criteria) match(t core.Transaction, query string) bool {
	if c.Category != "" && core.MatchCategory(string(t.Category)) != c.Category {
		return false
	}
	if c.HideRecurring && t.IsRecurring {
		return false
	}
	if c.Min != nil && t.Amount.LessThan(*c.Min) {
		return false
	}
	if c.Max != nil && t.Amount.GreaterThan(*c.Max) {
		return false
	}
	return query == "" ||
		strings.Contains(strings.ToLower(t.Description), query) ||
		strings.Contains(strings.ToLower(t.Vendor), query)
}

// Filter returns the transactions matching every set criterion, ordered
// newest first.
func Filter(transactions []core.Transaction, c Criteria) []core.Transaction {
	query := strings.ToLower(strings.TrimSpace(c.Query))
	out := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if c.match(t, query) {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	return out
}
