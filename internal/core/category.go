package core

import (
	"errors"
	"strings"
)

// Category is one of the fixed spending categories.
type Category string

const (
	Housing        Category = "Housing"
	FoodDining     Category = "Food & Dining"
	Groceries      Category = "Groceries"
	Transportation Category = "Transportation"
	Utilities      Category = "Utilities"
	Entertainment  Category = "Entertainment"
	HealthFitness  Category = "Health & Fitness"
	Shopping       Category = "Shopping"
	Travel         Category = "Travel"
	Other          Category = "Other"
)

var ErrInvalidCategory = errors.New("invalid category")

var categories = []Category{
	Housing, FoodDining, Groceries, Transportation, Utilities,
	Entertainment, HealthFitness, Shopping, Travel, Other,
}

// Categories returns the enumeration in declaration order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// CategoryNames returns the enumeration as plain strings.
func CategoryNames() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

func (c Category) IsValid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Index is the position of c in the enumeration, or -1.
func (c Category) Index() int {
	for i, known := range categories {
		if c == known {
			return i
		}
	}
	return -1
}

// ParseCategory matches s case-insensitively against the enumeration.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// MatchCategory is ParseCategory with the catch-all fallback.
func MatchCategory(s string) Category {
	if c, ok := ParseCategory(s); ok {
		return c
	}
	return Other
}
