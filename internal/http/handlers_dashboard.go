package http

import (
	"context"
	"net/http"
	"strconv"

	"duobudget/internal/aggregate"
	"duobudget/internal/core"
	"duobudget/internal/log"
	"duobudget/internal/services"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// snapshots reads the three collections the views aggregate over.
type snapshots struct {
	transactions []core.Transaction
	budgets      []core.MonthlyBudget
	savings      []core.SavingsProject
}

func (s *Server) loadSnapshots(ctx context.Context) (snapshots, error) {
	var snap snapshots
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.transactions, err = s.data.Transactions(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.budgets, err = s.data.Budgets(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.savings, err = s.data.Savings(ctx)
		return err
	})
	return snap, g.Wait()
}

type dashboardResponse struct {
	aggregate.Summary
	Normalization string                `json:"normalization"`
	Alerts        []aggregate.Overspend `json:"alerts"`
}

// handleDashboard returns the month-to-date summary of the current month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.loadSnapshots(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	now := s.now()
	summary := aggregate.Dashboard(snap.transactions, snap.budgets, snap.savings, now, s.normalizer)
	alerts := aggregate.OverBudget(snap.transactions, snap.budgets, summary.Month)
	if alerts == nil {
		alerts = []aggregate.Overspend{}
	}

	NewJSONResponse().Body(dashboardResponse{
		Summary:       summary,
		Normalization: s.normalizer.Name(),
		Alerts:        alerts,
	}).Write(w)
}

type spendingResponse struct {
	Period       aggregate.Granularity      `json:"period"`
	Selection    string                     `json:"selection"`
	Periods      []string                   `json:"periods"`
	HasPrev      bool                       `json:"hasPrev"`
	HasNext      bool                       `json:"hasNext"`
	Total        decimal.Decimal            `json:"total"`
	Chart        []aggregate.PeriodPoint    `json:"chart"`
	Breakdown    []aggregate.CategoryAmount `json:"breakdown"`
	Transactions []core.Transaction         `json:"transactions"`
}

// handleSpending returns the budget-vs-actual window, the category
// breakdown and the transactions of one period. An unknown key resolves to
// the most recent period; nav steps one period and clamps at the ends.
func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePeriodParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	snap, err := s.loadSnapshots(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	g := params.Granularity
	keys := aggregate.AvailablePeriods(snap.transactions, g, s.now())
	nav := aggregate.NewNavigator(keys)

	key := params.Key
	if key == "" {
		key = aggregate.KeyOf(g, s.now())
	}
	selection := nav.Resolve(key)
	switch params.Nav {
	case "prev":
		selection = nav.Prev(selection)
	case "next":
		selection = nav.Next(selection)
	}

	resp := spendingResponse{
		Period:       g,
		Selection:    selection,
		Periods:      keys,
		HasPrev:      nav.Prev(selection) != selection,
		HasNext:      nav.Next(selection) != selection,
		Total:        aggregate.PeriodTotal(snap.transactions, g, selection),
		Chart:        aggregate.BudgetVsActual(snap.transactions, snap.budgets, g, selection),
		Breakdown:    aggregate.CategoryBreakdown(snap.transactions, g, selection),
		Transactions: aggregate.InPeriod(snap.transactions, g, selection),
	}
	if resp.Breakdown == nil {
		resp.Breakdown = []aggregate.CategoryAmount{}
	}
	if resp.Transactions == nil {
		resp.Transactions = []core.Transaction{}
	}
	NewJSONResponse().Body(resp).Write(w)
}

// handleRecurring lists the recurring transactions scheduled on a day.
func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDayParam(r.URL.Query(), "date", s.now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	txs, err := s.data.Transactions(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	items := services.RecurringOn(txs, day)
	if items == nil {
		items = []core.Transaction{}
	}
	NewJSONResponse().Body(map[string]any{
		"date":         core.DayKey(day),
		"transactions": items,
	}).Write(w)
}

// handleRecurringCalendar maps each day of a month to its recurring
// transactions. Days without any are omitted.
func (s *Server) handleRecurringCalendar(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), "month", s.now())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	txs, err := s.data.Transactions(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	days := make(map[string][]core.Transaction)
	for d, items := range services.RecurringCalendar(txs, month) {
		days[strconv.Itoa(d)] = items
	}
	NewJSONResponse().Body(map[string]any{
		"month": core.MonthKey(month),
		"days":  days,
	}).Write(w)
}

// handleInsights returns advisor observations about recent spending.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.data.Insights(r.Context())
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(insights).Write(w)
}
