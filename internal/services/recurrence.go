// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for the recurring-expense calendar.
// Each frequency has its own strategy deciding whether a recurring transaction
// falls on a given day. The calendar is display only: no future instances are
// ever written to the store.
package services

import (
	"fmt"
	"sort"
	"time"

	"duobudget/internal/core"
)

// OccurrenceChecker is the strategy interface for placing a recurring
// transaction on the calendar.
type OccurrenceChecker interface {
	// OccursOn reports whether a series anchored at start has an occurrence on day.
	// day is never before start.
	OccursOn(start, day time.Time) bool
}

// OnceChecker matches only the anchor day.
type OnceChecker struct{}

func (OnceChecker) OccursOn(start, day time.Time) bool {
	return start.Equal(day)
}

// DailyChecker matches every day.
type DailyChecker struct{}

func (DailyChecker) OccursOn(_, _ time.Time) bool {
	return true
}

// IntervalDaysChecker matches every N days from the anchor.
type IntervalDaysChecker struct {
	Days int
}

func (c IntervalDaysChecker) OccursOn(start, day time.Time) bool {
	return daysBetween(start, day)%c.Days == 0
}

// IntervalMonthsChecker matches the anchor's day of month every N months.
// Anchors on the 29th-31st fall back to the last day of shorter months.
type IntervalMonthsChecker struct {
	Months int
}

func (c IntervalMonthsChecker) OccursOn(start, day time.Time) bool {
	months := (day.Year()-start.Year())*12 + int(day.Month()) - int(start.Month())
	if months%c.Months != 0 {
		return false
	}
	return day.Day() == clampDay(start.Day(), day)
}

// YearlyChecker matches the anchor's month and day every year.
type YearlyChecker struct{}

func (YearlyChecker) OccursOn(start, day time.Time) bool {
	return day.Month() == start.Month() && day.Day() == clampDay(start.Day(), day)
}

func clampDay(target int, in time.Time) int {
	if last := core.DaysIn(in); target > last {
		return last
	}
	return target
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// occurrenceStrategies maps frequencies to their checkers.
var occurrenceStrategies = map[core.Frequency]OccurrenceChecker{
	core.OneTime:   OnceChecker{},
	core.Daily:     DailyChecker{},
	core.Weekly:    IntervalDaysChecker{Days: 7},
	core.Biweekly:  IntervalDaysChecker{Days: 14},
	core.Monthly:   IntervalMonthsChecker{Months: 1},
	core.Bimonthly: IntervalMonthsChecker{Months: 2},
	core.Quarterly: IntervalMonthsChecker{Months: 3},
	core.Yearly:    YearlyChecker{},
}

// GetOccurrenceChecker returns the checker registered for a frequency.
func GetOccurrenceChecker(f core.Frequency) (OccurrenceChecker, error) {
	checker, ok := occurrenceStrategies[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, f)
	}
	return checker, nil
}

// OccursOn reports whether t, a recurring transaction, lands on day.
// Days before the first occurrence or after the end date never match.
func OccursOn(t core.Transaction, day time.Time) bool {
	if !t.IsRecurring {
		return false
	}
	start, err := core.ParseDay(t.Date)
	if err != nil || day.Before(start) {
		return false
	}
	if t.EndDate != "" {
		if end, err := core.ParseDay(t.EndDate); err == nil && day.After(end) {
			return false
		}
	}
	checker, err := GetOccurrenceChecker(t.Frequency)
	if err != nil {
		return false
	}
	return checker.OccursOn(start, day)
}

// RecurringOn lists the recurring transactions scheduled for day, ordered by
// time of day and then description.
func RecurringOn(transactions []core.Transaction, day time.Time) []core.Transaction {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var out []core.Transaction
	for _, t := range transactions {
		if OccursOn(t, day) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Description < out[j].Description
	})
	return out
}

// RecurringCalendar maps every day of the month containing ref to the
// recurring transactions scheduled on it. Days without any are omitted.
func RecurringCalendar(transactions []core.Transaction, ref time.Time) map[int][]core.Transaction {
	out := make(map[int][]core.Transaction)
	for d := 1; d <= core.DaysIn(ref); d++ {
		day := time.Date(ref.Year(), ref.Month(), d, 0, 0, 0, 0, time.UTC)
		if items := RecurringOn(transactions, day); len(items) > 0 {
			out[d] = items
		}
	}
	return out
}
