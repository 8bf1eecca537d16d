package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Frequency is how often a transaction or a savings contribution repeats.
type Frequency string

const (
	OneTime   Frequency = "One-time"
	Daily     Frequency = "Daily"
	Weekly    Frequency = "Weekly"
	Biweekly  Frequency = "Biweekly"
	Monthly   Frequency = "Monthly"
	Bimonthly Frequency = "Bimonthly"
	Quarterly Frequency = "Quarterly"
	Yearly    Frequency = "Yearly"
)

var ErrInvalidFrequency = errors.New("invalid frequency")

var frequencies = []Frequency{OneTime, Daily, Weekly, Biweekly, Monthly, Bimonthly, Quarterly, Yearly}

// Frequencies returns every frequency in declaration order.
func Frequencies() []Frequency {
	return append([]Frequency(nil), frequencies...)
}

func (f Frequency) IsValid() bool {
	for _, known := range frequencies {
		if f == known {
			return true
		}
	}
	return false
}

func (f Frequency) String() string {
	return string(f)
}

// ParseFrequency matches s case-insensitively; an empty string is one-time.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OneTime, nil
	}
	for _, f := range frequencies {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", ErrInvalidFrequency
}

// MonthlyFactor converts one contribution at this frequency into its
// monthly equivalent. One-time contributions have no monthly equivalent.
func (f Frequency) MonthlyFactor() decimal.Decimal {
	switch f {
	case Daily:
		return decimal.NewFromInt(365).Div(decimal.NewFromInt(12))
	case Weekly:
		return decimal.NewFromInt(52).Div(decimal.NewFromInt(12))
	case Biweekly:
		return decimal.NewFromInt(26).Div(decimal.NewFromInt(12))
	case Monthly:
		return decimal.NewFromInt(1)
	case Bimonthly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(2))
	case Quarterly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	case Yearly:
		return decimal.NewFromInt(1).Div(decimal.NewFromInt(12))
	default:
		return decimal.Zero
	}
}
