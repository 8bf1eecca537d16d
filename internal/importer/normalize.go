// Package importer turns spreadsheet rows into transaction drafts and writes
// the spreadsheet template users fill in.
package importer

import (
	"fmt"
	"strings"
	"time"

	"duobudget/internal/core"
)

// DefaultDescription is used for rows without a description.
const DefaultDescription = "Imported"

// Skip records a data row that produced no draft.
type Skip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Result summarises one normalization pass. Row numbers are 1-based and
// count the header row.
type Result struct {
	Rows     int    `json:"rows"`
	Accepted int    `json:"accepted"`
	Skipped  []Skip `json:"skipped,omitempty"`
}

type columns struct {
	date, time, description, vendor, amount, category, notes int
}

var headerAliases = map[string][]string{
	"date":        {"date"},
	"time":        {"time"},
	"description": {"description", "desc"},
	"vendor":      {"vendor", "merchant", "payee"},
	"amount":      {"amount", "cost"},
	"category":    {"category"},
	"notes":       {"notes", "note", "memo"},
}

func findColumns(header []string) (columns, bool) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	lookup := func(field string) int {
		for _, alias := range headerAliases[field] {
			if i, ok := idx[alias]; ok {
				return i
			}
		}
		return -1
	}
	c := columns{
		date:        lookup("date"),
		time:        lookup("time"),
		description: lookup("description"),
		vendor:      lookup("vendor"),
		amount:      lookup("amount"),
		category:    lookup("category"),
		notes:       lookup("notes"),
	}
	return c, c.date >= 0 && c.amount >= 0
}

// Normalize maps rows to drafts. The header is the first row naming both a
// date and an amount column (amount or cost); rows above it are ignored.
// Data rows without a parseable date or a non-zero amount are skipped.
// Every draft is a one-time transaction with a non-negative amount and a
// category from the enumeration, falling back to Other.
func Normalize(rows [][]string) ([]core.TransactionDraft, Result) {
	var res Result

	start := -1
	var cols columns
	for i, row := range rows {
		if c, ok := findColumns(row); ok {
			cols, start = c, i
			break
		}
	}
	if start < 0 {
		return nil, res
	}

	var drafts []core.TransactionDraft
	for i := start + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		res.Rows++
		d, err := normalizeRow(row, cols)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Row: i + 1, Reason: err.Error()})
			continue
		}
		drafts = append(drafts, d)
	}
	res.Accepted = len(drafts)
	return drafts, res
}

func normalizeRow(row []string, c columns) (core.TransactionDraft, error) {
	day, clock, ok := ParseDate(cell(row, c.date))
	if !ok {
		return core.TransactionDraft{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, cell(row, c.date))
	}
	amount, err := core.ParseImportAmount(cell(row, c.amount))
	if err != nil || amount.IsZero() {
		return core.TransactionDraft{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, cell(row, c.amount))
	}

	if t := cell(row, c.time); t != "" {
		if parsed, err := time.Parse(core.TimeLayout, t); err == nil {
			clock = parsed.Format(core.TimeLayout)
		}
	}
	desc := cell(row, c.description)
	if desc == "" {
		desc = DefaultDescription
	}

	return core.TransactionDraft{
		Date:        day,
		Time:        clock,
		Description: desc,
		Vendor:      cell(row, c.vendor),
		Amount:      amount,
		Category:    core.MatchCategory(cell(row, c.category)),
		Frequency:   core.OneTime,
		Notes:       cell(row, c.notes),
	}, nil
}

var dateLayouts = []string{
	core.DateLayout,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/2006 15:04",
	"2006/01/02",
	"01-02-06",
}

// ParseDate reads a spreadsheet date cell. It returns the calendar day and,
// when the cell carries a time that is not midnight, the HH:MM time.
func ParseDate(s string) (day, clock string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Hour() != 0 || t.Minute() != 0 {
			clock = t.Format(core.TimeLayout)
		}
		return core.DayKey(t), clock, true
	}
	return "", "", false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
