package services

import (
	"context"
	"fmt"
	"strings"

	"duobudget/internal/advisor"
	"duobudget/internal/core"
	"duobudget/internal/log"
)

// MaxSuggestionExamples caps the history handed to the advisor.
const MaxSuggestionExamples = 30

// CategoryAdvisor is the optional suggestion collaborator.
type CategoryAdvisor interface {
	Suggest(ctx context.Context, req advisor.Request) (string, error)
}

// InsightSource is the optional insight collaborator.
type InsightSource interface {
	Insights(ctx context.Context, lines []string) ([]advisor.Insight, error)
}

// SuggestionExamples walks history from newest to oldest and keeps the first
// category seen for each distinct vendor-or-description, up to limit entries.
func SuggestionExamples(transactions []core.Transaction, limit int) []advisor.Example {
	seen := make(map[string]bool)
	var out []advisor.Example
	for i := len(transactions) - 1; i >= 0 && len(out) < limit; i-- {
		t := transactions[i]
		key := t.Label()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, advisor.Example{Text: key, Category: string(t.Category)})
	}
	return out
}

// SuggestCategory asks the advisor for a category. The boolean is false when
// there is no usable suggestion; callers then leave the category unchanged.
func (s *DataService) SuggestCategory(ctx context.Context, description, vendor string) (core.Category, bool) {
	description, vendor = strings.TrimSpace(description), strings.TrimSpace(vendor)
	if s.advisor == nil || (description == "" && vendor == "") {
		return "", false
	}

	txs, err := s.records.Transactions(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Suggestion history unavailable", log.FieldError, err)
		txs = nil
	}

	got, err := s.advisor.Suggest(ctx, advisor.Request{
		Description: description,
		Vendor:      vendor,
		Examples:    SuggestionExamples(txs, MaxSuggestionExamples),
		Categories:  core.CategoryNames(),
	})
	if err != nil {
		s.logger.DebugContext(ctx, "No category suggestion", log.FieldError, err)
		return "", false
	}
	c, ok := core.ParseCategory(got)
	return c, ok
}

// insightSampleSize is how many of the latest transactions are summarised.
const insightSampleSize = 50

// Insights asks the insight collaborator about the latest transactions. A
// missing collaborator or a failure is reported as a single alert insight.
func (s *DataService) Insights(ctx context.Context) ([]advisor.Insight, error) {
	if s.insights == nil {
		return []advisor.Insight{{
			Title:   "Insights unavailable",
			Content: "Configure an LLM API key to see AI insights.",
			Type:    "alert",
		}}, nil
	}

	txs, err := s.records.Transactions(ctx)
	if err != nil {
		return nil, err
	}
	if len(txs) > insightSampleSize {
		txs = txs[len(txs)-insightSampleSize:]
	}
	lines := make([]string, len(txs))
	for i, t := range txs {
		lines[i] = fmt.Sprintf("%s: %s - $%s (%s)", t.Date, t.Description, t.Amount.StringFixed(2), t.Category)
	}

	out, err := s.insights.Insights(ctx, lines)
	if err != nil {
		s.logger.ErrorContext(ctx, "Insight generation failed", log.FieldError, err)
		return []advisor.Insight{{
			Title:   "Analysis Failed",
			Content: "Could not generate insights at this time.",
			Type:    "alert",
		}}, nil
	}
	return out, nil
}
