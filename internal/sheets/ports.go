package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Ports for spreadsheet adapters.
type (
	// RowReader reads a rectangular range of cells as text.
	RowReader interface {
		ReadRows(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	}

	// RowAppender appends rows after the last filled row of a range and
	// returns the reference of the written cells.
	RowAppender interface {
		AppendRows(ctx context.Context, spreadsheetID, rng string, rows [][]string) (string, error)
	}
)

// DefaultRange is read when a request names no range.
const DefaultRange = "A:Z"

var ErrMissingSpreadsheet = errors.New("missing spreadsheet id")

var urlID = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID accepts either a bare spreadsheet id or a sharing URL and
// returns the id.
func SpreadsheetID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrMissingSpreadsheet
	}
	if !strings.Contains(ref, "/") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse spreadsheet url: %w", err)
	}
	m := urlID.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w in %q", ErrMissingSpreadsheet, ref)
	}
	return m[1], nil
}

// Range returns rng, or DefaultRange when rng is empty. A bare sheet name
// is widened to its default columns.
func Range(rng string) string {
	rng = strings.TrimSpace(rng)
	switch {
	case rng == "":
		return DefaultRange
	case !strings.Contains(rng, "!") && !strings.Contains(rng, ":"):
		return rng + "!" + DefaultRange
	}
	return rng
}
