// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"duobudget/internal/aggregate"
	"duobudget/internal/core"
)

const (
	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20
	// maxUploadBytes caps import uploads.
	maxUploadBytes = 10 << 20
)

// errMalformed marks a body or query that could not be parsed at all.
var errMalformed = errors.New("malformed request")

// DecodeJSON reads exactly one JSON value from the body into v. Unknown
// fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformed)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON value", errMalformed)
	}
	return nil
}

// PeriodParams selects a spending period.
type PeriodParams struct {
	Granularity aggregate.Granularity
	Key         string
	Nav         string
}

// ParsePeriodParams reads period, key and nav from the query string.
// The key is validated by the navigator later, so only its shape is
// checked here.
func ParsePeriodParams(query url.Values) (PeriodParams, error) {
	g, err := aggregate.ParseGranularity(query.Get("period"))
	if err != nil {
		return PeriodParams{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	p := PeriodParams{
		Granularity: g,
		Key:         strings.TrimSpace(query.Get("key")),
		Nav:         strings.ToLower(strings.TrimSpace(query.Get("nav"))),
	}
	if p.Key != "" && !aggregate.ValidKey(g, p.Key) {
		return PeriodParams{}, fmt.Errorf("%w: key %q does not match period %s", errMalformed, p.Key, g)
	}
	switch p.Nav {
	case "", "prev", "next":
	default:
		return PeriodParams{}, fmt.Errorf("%w: nav must be prev or next", errMalformed)
	}
	return p, nil
}

// ParseDayParam reads a YYYY-MM-DD query value, defaulting to now's date.
func ParseDayParam(query url.Values, name string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := core.ParseDay(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return day, nil
}

// ParseMonthParam reads a YYYY-MM query value, defaulting to now's month.
func ParseMonthParam(query url.Values, name string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := core.ParseMonth(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return month, nil
}

// ParseLimit reads a positive integer query value capped at max.
func ParseLimit(query url.Values, name string, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errMalformed, name)
	}
	if n > max {
		n = max
	}
	return n, nil
}

// sanitizeDraft cleans the free-text fields of a draft.
func sanitizeDraft(d core.TransactionDraft) core.TransactionDraft {
	d.Description = sanitizeInput(d.Description)
	d.Vendor = sanitizeInput(d.Vendor)
	d.Notes = sanitizeInput(d.Notes)
	d.Date = strings.TrimSpace(d.Date)
	d.Time = strings.TrimSpace(d.Time)
	d.EndDate = strings.TrimSpace(d.EndDate)
	if c, ok := core.ParseCategory(string(d.Category)); ok {
		d.Category = c
	}
	return d
}
