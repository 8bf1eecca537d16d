package http

import (
	"fmt"
	"net/http"

	"duobudget/internal/core"
	"duobudget/internal/log"

	"github.com/shopspring/decimal"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.data.Budgets(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	if budgets == nil {
		budgets = []core.MonthlyBudget{}
	}
	NewJSONResponse().Body(budgets).Write(w)
}

type budgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type budgetResponse struct {
	Month    string          `json:"month"`
	Category core.Category   `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// handleSetBudget upserts one category allocation of a month. The
// category path segment is matched case-insensitively.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	category, ok := core.ParseCategory(r.PathValue("category"))
	if !ok {
		s.fail(w, r, log.OpUpdate, fmt.Errorf("%w: %q", core.ErrInvalidCategory, r.PathValue("category")))
		return
	}

	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if err := s.data.SetBudget(r.Context(), month, category, req.Amount); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.metrics.mutated()
	NewJSONResponse().Body(budgetResponse{Month: month, Category: category, Amount: req.Amount}).Write(w)
}
