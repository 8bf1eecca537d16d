package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"duobudget/internal/aggregate"
	"duobudget/internal/core"
	"duobudget/internal/log"

	"github.com/shopspring/decimal"
)

// handleListTransactions lists transactions newest first, optionally
// filtered by search query, category, recurrence and amount range.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria, err := listCriteria(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	txs, err := s.data.Transactions(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(aggregate.Filter(txs, criteria)).Write(w)
}

// listCriteria reads q, category, recurring=false, min and max.
func listCriteria(q url.Values) (aggregate.Criteria, error) {
	c := aggregate.Criteria{Query: sanitizeInput(q.Get("q"))}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		cat, ok := core.ParseCategory(v)
		if !ok {
			return c, fmt.Errorf("%w: unknown category %q", errMalformed, v)
		}
		c.Category = cat
	}
	if v := strings.TrimSpace(q.Get("recurring")); v != "" {
		show, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: recurring must be true or false", errMalformed)
		}
		c.HideRecurring = !show
	}
	for _, bound := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"min", &c.Min}, {"max", &c.Max}} {
		v := strings.TrimSpace(q.Get(bound.name))
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, fmt.Errorf("%w: %s is not an amount", errMalformed, bound.name)
		}
		*bound.dst = &d
	}
	return c, nil
}

// handleCreateTransaction adds one transaction. A draft without a category
// gets the advisor's suggestion, or Other when there is none.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var d core.TransactionDraft
	if err := DecodeJSON(w, r, &d); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	d = sanitizeDraft(d)
	if d.Category == "" {
		d.Category = core.Other
		if c, ok := s.data.SuggestCategory(r.Context(), d.Description, d.Vendor); ok {
			d.Category = c
		}
	}

	t, err := s.data.AddTransaction(r.Context(), d)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+t.ID).
		Body(t).
		Write(w)
}

// handleUpdateTransaction replaces a transaction. The path identifier wins
// over any identifier in the body.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := DecodeJSON(w, r, &t); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	t = sanitizeDraft(t.Draft()).WithID(r.PathValue("id"))

	if err := s.data.UpdateTransaction(r.Context(), t); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Body(t.Draft().Normalized().WithID(t.ID)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.data.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type suggestRequest struct {
	Description string `json:"description"`
	Vendor      string `json:"vendor"`
}

type suggestResponse struct {
	Category  core.Category `json:"category,omitempty"`
	Suggested bool          `json:"suggested"`
}

// handleSuggestCategory returns the advisor's category for a description
// and vendor. No suggestion is not an error.
func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpSuggest, err)
		return
	}
	c, ok := s.data.SuggestCategory(r.Context(), sanitizeInput(req.Description), sanitizeInput(req.Vendor))
	NewJSONResponse().Body(suggestResponse{Category: c, Suggested: ok}).Write(w)
}
