package advisor

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
)

// keywordHints maps lowercase fragments to a category name. Checked only when
// no history example is close enough.
var keywordHints = []struct {
	fragment string
	category string
}{
	{"rent", "Housing"},
	{"mortgage", "Housing"},
	{"restaurant", "Food & Dining"},
	{"coffee", "Food & Dining"},
	{"starbucks", "Food & Dining"},
	{"pizza", "Food & Dining"},
	{"grocer", "Groceries"},
	{"supermarket", "Groceries"},
	{"whole foods", "Groceries"},
	{"uber", "Transportation"},
	{"lyft", "Transportation"},
	{"fuel", "Transportation"},
	{"gas station", "Transportation"},
	{"parking", "Transportation"},
	{"electric", "Utilities"},
	{"water bill", "Utilities"},
	{"internet", "Utilities"},
	{"phone", "Utilities"},
	{"netflix", "Entertainment"},
	{"spotify", "Entertainment"},
	{"cinema", "Entertainment"},
	{"gym", "Health & Fitness"},
	{"pharmacy", "Health & Fitness"},
	{"doctor", "Health & Fitness"},
	{"amazon", "Shopping"},
	{"clothing", "Shopping"},
	{"hotel", "Travel"},
	{"airline", "Travel"},
	{"flight", "Travel"},
}

// Heuristic suggests a category without any network call: the closest past
// example by edit distance wins, keyword hints are the fallback.
type Heuristic struct {
	// MinSimilarity in [0,1]; examples below it are ignored.
	MinSimilarity float64
}

func NewHeuristic() *Heuristic {
	return &Heuristic{MinSimilarity: 0.75}
}

func (h *Heuristic) Suggest(_ context.Context, req Request) (string, error) {
	candidates := make([]string, 0, 2)
	for _, s := range []string{req.Vendor, req.Description} {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return "", ErrNoSuggestion
	}

	best, bestScore := "", 0.0
	for _, ex := range req.Examples {
		text := strings.ToLower(strings.TrimSpace(ex.Text))
		if text == "" {
			continue
		}
		for _, c := range candidates {
			if score := Similarity(c, text); score > bestScore {
				best, bestScore = ex.Category, score
			}
		}
	}
	if bestScore >= h.MinSimilarity {
		if match, ok := Match(best, req.Categories); ok {
			return match, nil
		}
	}

	for _, c := range candidates {
		for _, hint := range keywordHints {
			if strings.Contains(c, hint.fragment) {
				if match, ok := Match(hint.category, req.Categories); ok {
					return match, nil
				}
			}
		}
	}
	return "", ErrNoSuggestion
}

// Similarity is 1 minus the normalised Levenshtein distance of a and b.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
