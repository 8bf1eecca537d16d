package aggregate

import (
	"sort"
	"time"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// DayPoint is one day of a cumulative series.
type DayPoint struct {
	Day    int             `json:"day"`
	Amount decimal.Decimal `json:"amount"`
}

// CumulativeMTD returns one point per calendar day of now's month. Each
// point is the running total of the month's transactions up to that day.
func CumulativeMTD(transactions []core.Transaction, now time.Time) []DayPoint {
	month := KeyOf(Month, now)
	days := core.DaysIn(now)

	daily := make([]decimal.Decimal, days+1)
	for _, t := range transactions {
		d, err := core.ParseDay(t.Date)
		if err != nil || KeyOf(Month, d) != month {
			continue
		}
		daily[d.Day()] = daily[d.Day()].Add(t.Amount)
	}

	out := make([]DayPoint, 0, days)
	running := decimal.Zero
	for day := 1; day <= days; day++ {
		running = running.Add(daily[day])
		out = append(out, DayPoint{Day: day, Amount: running})
	}
	return out
}

// PeriodTotal sums the transactions whose key under g equals key.
func PeriodTotal(transactions []core.Transaction, g Granularity, key string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		if Key(g, t.Date) == key {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// MonthTotal sums the transactions dated within the given calendar month.
func MonthTotal(transactions []core.Transaction, year int, month time.Month) decimal.Decimal {
	return PeriodTotal(transactions, Month, KeyOf(Month, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)))
}

// CurrentMonthTotal is the month-to-date spend of now's month.
func CurrentMonthTotal(transactions []core.Transaction, now time.Time) decimal.Decimal {
	return MonthTotal(transactions, now.Year(), now.Month())
}

// PriorMonthTotal is the spend of the calendar month before now's month.
func PriorMonthTotal(transactions []core.Transaction, now time.Time) decimal.Decimal {
	prior := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
	return MonthTotal(transactions, prior.Year(), prior.Month())
}

// MonthBudgetTotal is the sum of all category allocations of month, or zero
// when that month has no budget.
func MonthBudgetTotal(budgets []core.MonthlyBudget, month string) decimal.Decimal {
	for _, b := range budgets {
		if b.Month == month {
			return b.Total()
		}
	}
	return decimal.Zero
}

// CurrentMonthBudgetTotal is MonthBudgetTotal for now's month.
func CurrentMonthBudgetTotal(budgets []core.MonthlyBudget, now time.Time) decimal.Decimal {
	return MonthBudgetTotal(budgets, KeyOf(Month, now))
}

// YearBudgetTotal sums the monthly budgets of year.
func YearBudgetTotal(budgets []core.MonthlyBudget, year string) decimal.Decimal {
	total := decimal.Zero
	for _, b := range budgets {
		if len(b.Month) >= 4 && b.Month[:4] == year {
			total = total.Add(b.Total())
		}
	}
	return total
}

// SortNewestFirst orders transactions by date and time, latest first.
// Transactions without a time sort as midnight.
func SortNewestFirst(transactions []core.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		return stamp(transactions[i]) > stamp(transactions[j])
	})
}

func stamp(t core.Transaction) string {
	tm := t.Time
	if tm == "" {
		tm = "00:00"
	}
	return t.Date + "T" + tm
}
