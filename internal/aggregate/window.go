package aggregate

import (
	"strconv"
	"time"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// PeriodPoint is one bar of the budget-vs-actual chart.
type PeriodPoint struct {
	Key          string          `json:"key"`
	Label        string          `json:"label"`
	TooltipLabel string          `json:"tooltipLabel"`
	Budget       decimal.Decimal `json:"budget"`
	Actual       decimal.Decimal `json:"actual"`
	IsCurrent    bool            `json:"isCurrent"`
}

// window bounds per granularity, as offsets from the selection.
var windows = map[Granularity][2]int{
	Day:   {-5, 5},
	Month: {-5, 0},
	Year:  {-2, 0},
}

// BudgetVsActual builds the chart window around selection. A day window
// spans five days either side with the month budget spread evenly over its
// days; a month window ends at the selection and covers the five months
// before it; a year window covers the selection and the two years before it
// with the sum of that year's monthly budgets. A malformed selection yields
// no points.
func BudgetVsActual(transactions []core.Transaction, budgets []core.MonthlyBudget, g Granularity, selection string) []PeriodPoint {
	base, ok := parseKey(g, selection)
	if !ok {
		return nil
	}

	actual := make(map[string]decimal.Decimal)
	for _, t := range transactions {
		if k := Key(g, t.Date); k != "" {
			actual[k] = actual[k].Add(t.Amount)
		}
	}

	bounds := windows[g]
	out := make([]PeriodPoint, 0, bounds[1]-bounds[0]+1)
	for off := bounds[0]; off <= bounds[1]; off++ {
		p := point(g, shift(g, base, off), budgets)
		p.Actual = actual[p.Key]
		p.IsCurrent = p.Key == selection
		out = append(out, p)
	}
	return out
}

func shift(g Granularity, t time.Time, off int) time.Time {
	switch g {
	case Day:
		return t.AddDate(0, 0, off)
	case Year:
		return t.AddDate(off, 0, 0)
	default:
		return t.AddDate(0, off, 0)
	}
}

func point(g Granularity, t time.Time, budgets []core.MonthlyBudget) PeriodPoint {
	p := PeriodPoint{Key: KeyOf(g, t)}
	switch g {
	case Day:
		p.Label = strconv.Itoa(t.Day())
		p.TooltipLabel = t.Format("Mon") + " " + p.Label
		p.Budget = MonthBudgetTotal(budgets, KeyOf(Month, t)).Div(decimal.NewFromInt(int64(core.DaysIn(t))))
	case Year:
		p.Label = p.Key
		p.TooltipLabel = p.Label
		p.Budget = YearBudgetTotal(budgets, p.Key)
	default:
		p.Label = t.Format("Jan")
		p.TooltipLabel = p.Label
		p.Budget = MonthBudgetTotal(budgets, p.Key)
	}
	return p
}
