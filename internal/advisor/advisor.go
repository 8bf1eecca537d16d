// Package advisor suggests a spending category for a new transaction and
// produces short spending insights. Every adapter is optional: callers treat
// a missing suggestion as "leave the field unchanged".
package advisor

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSuggestion is returned when an adapter has nothing useful to say.
var ErrNoSuggestion = errors.New("no suggestion")

// Example is one past categorisation the user made.
type Example struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Request carries the transaction being categorised and the user's history.
type Request struct {
	Description string
	Vendor      string
	Examples    []Example
	Categories  []string
}

// Suggester returns one value of Request.Categories or an error.
type Suggester interface {
	Suggest(ctx context.Context, req Request) (string, error)
}

// Insight is a one-sentence observation about recent spending.
type Insight struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"` // saving, trend, alert or positive
}

// InsightProvider summarises a list of transaction lines.
type InsightProvider interface {
	Insights(ctx context.Context, lines []string) ([]Insight, error)
}

// Chain asks each suggester in turn and returns the first usable answer.
type Chain []Suggester

func (c Chain) Suggest(ctx context.Context, req Request) (string, error) {
	var errs []error
	for _, s := range c {
		if s == nil {
			continue
		}
		got, err := s.Suggest(ctx, req)
		if err == nil {
			if match, ok := Match(got, req.Categories); ok {
				return match, nil
			}
			continue
		}
		if !errors.Is(err, ErrNoSuggestion) {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", ErrNoSuggestion
}

// Match finds s among categories, ignoring case, surrounding whitespace and
// quotes or a trailing period a model may add.
func Match(s string, categories []string) (string, bool) {
	s = strings.Trim(strings.TrimSpace(s), "\"'`.")
	for _, c := range categories {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}
