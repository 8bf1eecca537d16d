package core

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ThemeColor is the accent palette picked by the user.
type ThemeColor string

const (
	ThemeIndigo  ThemeColor = "indigo"
	ThemeEmerald ThemeColor = "emerald"
	ThemeRose    ThemeColor = "rose"
	ThemeAmber   ThemeColor = "amber"
	ThemeSky     ThemeColor = "sky"
	ThemeViolet  ThemeColor = "violet"

	DefaultTheme = ThemeIndigo
)

var ErrInvalidTheme = errors.New("invalid theme")

var themes = []ThemeColor{ThemeIndigo, ThemeEmerald, ThemeRose, ThemeAmber, ThemeSky, ThemeViolet}

func (t ThemeColor) IsValid() bool {
	for _, known := range themes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTheme matches s case-insensitively.
func ParseTheme(s string) (ThemeColor, error) {
	s = strings.TrimSpace(s)
	for _, t := range themes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", ErrInvalidTheme
}

// NewID generates a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// NormalizeID strips incidental whitespace from an identifier.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// SameID is the identity comparison used by every lookup.
func SameID(a, b string) bool {
	return NormalizeID(a) == NormalizeID(b)
}

// NewProfile creates a profile with a fresh identifier and the default theme.
func NewProfile() UserProfile {
	return UserProfile{
		ID:      NewID(),
		Theme:   DefaultTheme,
		Viewers: []string{},
	}
}
