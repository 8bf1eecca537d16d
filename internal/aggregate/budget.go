package aggregate

import (
	"fmt"
	"strings"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

// Normalizer converts one savings contribution into the amount deducted
// from a monthly budget.
type Normalizer interface {
	Name() string
	Monthly(p core.SavingsProject) decimal.Decimal
}

// FaceValue deducts each contribution as entered, whatever its frequency.
type FaceValue struct{}

func (FaceValue) Name() string { return "face_value" }

func (FaceValue) Monthly(p core.SavingsProject) decimal.Decimal { return p.Amount }

// MonthlyEquivalent scales each contribution to its monthly rate. One-time
// contributions deduct nothing.
type MonthlyEquivalent struct{}

func (MonthlyEquivalent) Name() string { return "monthly_equivalent" }

func (MonthlyEquivalent) Monthly(p core.SavingsProject) decimal.Decimal {
	return p.Amount.Mul(p.Frequency.MonthlyFactor())
}

// ParseNormalizer maps a configuration value to a Normalizer. Empty means
// FaceValue.
func ParseNormalizer(s string) (Normalizer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "face_value":
		return FaceValue{}, nil
	case "monthly_equivalent":
		return MonthlyEquivalent{}, nil
	}
	return nil, fmt.Errorf("unknown savings normalization %q", s)
}

// SavingsDeduction sums the contributions of budget-deducting projects.
func SavingsDeduction(savings []core.SavingsProject, n Normalizer) decimal.Decimal {
	if n == nil {
		n = FaceValue{}
	}
	total := decimal.Zero
	for _, p := range savings {
		if p.DeductFromBudget {
			total = total.Add(n.Monthly(p))
		}
	}
	return total
}

// EffectiveBudget is gross minus the savings deduction. It may be negative.
func EffectiveBudget(gross decimal.Decimal, savings []core.SavingsProject, n Normalizer) decimal.Decimal {
	return gross.Sub(SavingsDeduction(savings, n))
}
