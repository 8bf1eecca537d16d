package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the canonical calendar-day form used for storage and period keys.
	DateLayout = "2006-01-02"
	// MonthLayout is the canonical year+month form used by budgets.
	MonthLayout = "2006-01"
	// TimeLayout is the optional time-of-day form of a transaction.
	TimeLayout = "15:04"
)

type (
	// Transaction is a single spending record.
	Transaction struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"`
		Time        string          `json:"time,omitempty"`
		Description string          `json:"description"`
		Vendor      string          `json:"vendor,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		IsRecurring bool            `json:"isRecurring"`
		Frequency   Frequency       `json:"type"`
		EndDate     string          `json:"endDate,omitempty"`
		ParentID    string          `json:"parentId,omitempty"`
		Notes       string          `json:"notes,omitempty"`
	}

	// TransactionDraft is a transaction that has not been assigned an identifier yet.
	TransactionDraft struct {
		Date        string          `json:"date"`
		Time        string          `json:"time,omitempty"`
		Description string          `json:"description"`
		Vendor      string          `json:"vendor,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		IsRecurring bool            `json:"isRecurring"`
		Frequency   Frequency       `json:"type"`
		EndDate     string          `json:"endDate,omitempty"`
		ParentID    string          `json:"parentId,omitempty"`
		Notes       string          `json:"notes,omitempty"`
	}

	// MonthlyBudget holds the category allocations of one month.
	// Categories absent from the mapping count as zero.
	MonthlyBudget struct {
		Month      string                       `json:"month"`
		Categories map[Category]decimal.Decimal `json:"categories"`
	}

	// SavingsProject is a recurring contribution towards a goal.
	SavingsProject struct {
		ID               string          `json:"id"`
		Name             string          `json:"name"`
		Amount           decimal.Decimal `json:"amount"`
		Frequency        Frequency       `json:"frequency"`
		DeductFromBudget bool            `json:"deductFromBudget"`
		Memo             string          `json:"memo,omitempty"`
	}

	// UserProfile is the per-installation singleton.
	UserProfile struct {
		ID      string     `json:"id"`
		Theme   ThemeColor `json:"theme"`
		Viewers []string   `json:"viewers"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyViewer      = errors.New("empty viewer")
	ErrNotFound         = errors.New("not found")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidEndDate   = errors.New("invalid end date")
)

// ParseDay parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM month key.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return t, nil
}

// DayKey formats t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// DaysIn returns the number of days of the month containing t.
func DaysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d TransactionDraft) Validate() error {
	day, err := ParseDay(d.Date)
	if err != nil {
		return err
	}
	if d.Time != "" {
		if _, err := time.Parse(TimeLayout, d.Time); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidTime, d.Time)
		}
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return ErrDescriptionLong
	}
	if d.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !d.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, d.Category)
	}
	if !d.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, d.Frequency)
	}
	if d.EndDate != "" {
		end, err := ParseDay(d.EndDate)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEndDate, err)
		}
		if end.Before(day) {
			return fmt.Errorf("%w: %s is before %s", ErrInvalidEndDate, d.EndDate, d.Date)
		}
	}
	return nil
}

// Normalized trims the text fields and turns a missing frequency into
// one-time. The recurrence flag is kept as given.
func (d TransactionDraft) Normalized() TransactionDraft {
	d.Date = strings.TrimSpace(d.Date)
	d.Description = strings.TrimSpace(d.Description)
	d.Vendor = strings.TrimSpace(d.Vendor)
	if d.Frequency == "" {
		d.Frequency = OneTime
	}
	return d
}

// WithID turns the draft into a transaction carrying id.
func (d TransactionDraft) WithID(id string) Transaction {
	return Transaction{
		ID:          id,
		Date:        d.Date,
		Time:        d.Time,
		Description: d.Description,
		Vendor:      d.Vendor,
		Amount:      d.Amount,
		Category:    d.Category,
		IsRecurring: d.IsRecurring,
		Frequency:   d.Frequency,
		EndDate:     d.EndDate,
		ParentID:    d.ParentID,
		Notes:       d.Notes,
	}
}

// Draft strips the identifier.
func (t Transaction) Draft() TransactionDraft {
	return TransactionDraft{
		Date:        t.Date,
		Time:        t.Time,
		Description: t.Description,
		Vendor:      t.Vendor,
		Amount:      t.Amount,
		Category:    t.Category,
		IsRecurring: t.IsRecurring,
		Frequency:   t.Frequency,
		EndDate:     t.EndDate,
		ParentID:    t.ParentID,
		Notes:       t.Notes,
	}
}

func (t Transaction) Validate() error {
	if NormalizeID(t.ID) == "" {
		return errors.New("empty transaction id")
	}
	return t.Draft().Validate()
}

// Label is the key used to learn category habits: the vendor when present,
// the description otherwise.
func (t Transaction) Label() string {
	if v := strings.TrimSpace(t.Vendor); v != "" {
		return v
	}
	return strings.TrimSpace(t.Description)
}

// ValidateMonthKey reports whether s is a YYYY-MM key.
func ValidateMonthKey(s string) error {
	_, err := ParseMonth(s)
	return err
}

// Total sums every category allocation.
func (b MonthlyBudget) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b.Categories {
		total = total.Add(v)
	}
	return total
}

// Clone returns a copy that does not share the category mapping.
func (b MonthlyBudget) Clone() MonthlyBudget {
	out := MonthlyBudget{Month: b.Month, Categories: make(map[Category]decimal.Decimal, len(b.Categories))}
	for k, v := range b.Categories {
		out.Categories[k] = v
	}
	return out
}

func (s SavingsProject) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if s.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !s.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, s.Frequency)
	}
	return nil
}

// HasViewer reports whether id already has read access.
func (p UserProfile) HasViewer(id string) bool {
	for _, v := range p.Viewers {
		if SameID(v, id) {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the viewer slice.
func (p UserProfile) Clone() UserProfile {
	p.Viewers = append([]string(nil), p.Viewers...)
	return p
}
