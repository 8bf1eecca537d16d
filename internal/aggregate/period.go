// Package aggregate turns transaction and budget snapshots into the figures
// shown on the dashboard and spending views. Every function is pure: missing
// or malformed data counts as zero and nothing returns an error.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"duobudget/internal/core"
)

// Granularity selects the period length of keys and windows.
type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity accepts the names above in any case. Empty means Month.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month", "monthly":
		return Month, nil
	case "day", "daily":
		return Day, nil
	case "year", "yearly":
		return Year, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func (g Granularity) keyLen() int {
	switch g {
	case Day:
		return len(core.DateLayout)
	case Year:
		return 4
	default:
		return len(core.MonthLayout)
	}
}

// Key is the period key of an ISO calendar date: the date itself, its
// YYYY-MM prefix or its YYYY prefix. Dates that do not parse have no key.
func Key(g Granularity, date string) string {
	date = strings.TrimSpace(date)
	if _, err := core.ParseDay(date); err != nil {
		return ""
	}
	return date[:g.keyLen()]
}

// KeyOf is Key for a time value.
func KeyOf(g Granularity, t time.Time) string {
	return core.DayKey(t)[:g.keyLen()]
}

// ValidKey reports whether key is a well-formed key of granularity g.
func ValidKey(g Granularity, key string) bool {
	_, ok := parseKey(g, key)
	return ok
}

func parseKey(g Granularity, key string) (time.Time, bool) {
	var (
		t   time.Time
		err error
	)
	switch g {
	case Day:
		t, err = time.Parse(core.DateLayout, key)
	case Year:
		t, err = time.Parse("2006", key)
	default:
		t, err = time.Parse(core.MonthLayout, key)
	}
	return t, err == nil
}

// AvailablePeriods is the sorted set of keys that have at least one
// transaction, always including the key of now.
func AvailablePeriods(transactions []core.Transaction, g Granularity, now time.Time) []string {
	seen := map[string]bool{KeyOf(g, now): true}
	for _, t := range transactions {
		if k := Key(g, t.Date); k != "" {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Navigator steps through an ordered period index. Movement clamps at both
// ends of the index.
type Navigator struct {
	keys []string
}

func NewNavigator(keys []string) Navigator {
	return Navigator{keys: keys}
}

// Keys returns the underlying index.
func (n Navigator) Keys() []string {
	return n.keys
}

// Resolve returns key when it is in the index and the most recent key
// otherwise. An empty index resolves to key unchanged.
func (n Navigator) Resolve(key string) string {
	if n.indexOf(key) >= 0 || len(n.keys) == 0 {
		return key
	}
	return n.keys[len(n.keys)-1]
}

// Prev moves one step back from the resolved key.
func (n Navigator) Prev(key string) string {
	key = n.Resolve(key)
	if i := n.indexOf(key); i > 0 {
		return n.keys[i-1]
	}
	return key
}

// Next moves one step forward from the resolved key.
func (n Navigator) Next(key string) string {
	key = n.Resolve(key)
	if i := n.indexOf(key); i >= 0 && i < len(n.keys)-1 {
		return n.keys[i+1]
	}
	return key
}

func (n Navigator) indexOf(key string) int {
	i := sort.SearchStrings(n.keys, key)
	if i < len(n.keys) && n.keys[i] == key {
		return i
	}
	return -1
}

// InPeriod returns the transactions whose key under g equals key, newest first.
func InPeriod(transactions []core.Transaction, g Granularity, key string) []core.Transaction {
	var out []core.Transaction
	for _, t := range transactions {
		if Key(g, t.Date) == key {
			out = append(out, t)
		}
	}
	SortNewestFirst(out)
	return out
}
