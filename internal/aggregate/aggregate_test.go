package aggregate

import (
	"reflect"
	"testing"
	"time"

	"duobudget/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(id, date, amount string, c core.Category) core.Transaction {
	return core.Transaction{ID: id, Date: date, Description: "tx " + id, Amount: dec(amount), Category: c, Frequency: core.OneTime}
}

func day(s string) time.Time {
	t, err := core.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// January scenario: 10 on the 1st, 20 on the 15th, 5 on the 31st, budget 100.
func january() ([]core.Transaction, []core.MonthlyBudget) {
	txs := []core.Transaction{
		tx("1", "2024-01-01", "10", core.Groceries),
		tx("2", "2024-01-15", "20", core.Housing),
		tx("3", "2024-01-31", "5", core.Groceries),
	}
	budgets := []core.MonthlyBudget{
		{Month: "2024-01", Categories: map[core.Category]decimal.Decimal{core.Housing: dec("100")}},
	}
	return txs, budgets
}

func TestKey(t *testing.T) {
	cases := []struct {
		g    Granularity
		date string
		want string
	}{
		{Day, "2024-05-15", "2024-05-15"},
		{Month, "2024-05-15", "2024-05"},
		{Year, "2024-05-15", "2024"},
		{Month, " 2024-05-15 ", "2024-05"},
		{Month, "2024-13-01", ""},
		{Year, "", ""},
	}
	for _, tc := range cases {
		t.Run(string(tc.g)+"/"+tc.date, func(t *testing.T) {
			if got := Key(tc.g, tc.date); got != tc.want {
				t.Fatalf("Key(%s, %q) = %q, want %q", tc.g, tc.date, got, tc.want)
			}
		})
	}

	if got := KeyOf(Year, day("2023-12-31")); got != "2023" {
		t.Fatalf("KeyOf year = %q", got)
	}
}

func TestParseGranularity(t *testing.T) {
	for in, want := range map[string]Granularity{"": Month, "DAILY": Day, "month": Month, "Year": Year} {
		got, err := ParseGranularity(in)
		if err != nil || got != want {
			t.Fatalf("ParseGranularity(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseGranularity("week"); err == nil {
		t.Fatalf("expected error for unknown period")
	}
}

func TestAvailablePeriods(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-03-02", "1", core.Other),
		tx("2", "2024-01-20", "1", core.Other),
		tx("3", "2024-03-09", "1", core.Other),
		tx("4", "garbage", "1", core.Other),
	}
	now := day("2024-06-01")

	got := AvailablePeriods(txs, Month, now)
	want := []string{"2024-01", "2024-03", "2024-06"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("months = %v, want %v", got, want)
	}

	got = AvailablePeriods(nil, Year, now)
	if !reflect.DeepEqual(got, []string{"2024"}) {
		t.Fatalf("empty history should still hold the current year, got %v", got)
	}
}

func TestNavigator(t *testing.T) {
	n := NewNavigator([]string{"2024-01", "2024-03", "2024-06"})

	cases := []struct {
		name string
		move func(string) string
		from string
		want string
	}{
		{"prev", n.Prev, "2024-03", "2024-01"},
		{"prev clamps at start", n.Prev, "2024-01", "2024-01"},
		{"next", n.Next, "2024-03", "2024-06"},
		{"next clamps at end", n.Next, "2024-06", "2024-06"},
		{"resolve present", n.Resolve, "2024-03", "2024-03"},
		{"resolve missing picks latest", n.Resolve, "2023-11", "2024-06"},
		{"prev from missing", n.Prev, "2030-01", "2024-03"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.move(tc.from); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if got := NewNavigator(nil).Prev("2024-01"); got != "2024-01" {
		t.Fatalf("empty navigator should keep key, got %q", got)
	}
}

func TestCumulativeMTD(t *testing.T) {
	txs, _ := january()
	txs = append(txs, tx("4", "2023-01-10", "1000", core.Other), tx("5", "2024-02-01", "7", core.Other))

	series := CumulativeMTD(txs, day("2024-01-31"))
	if len(series) != 31 {
		t.Fatalf("expected 31 points, got %d", len(series))
	}
	checks := map[int]string{1: "10", 14: "10", 15: "30", 30: "30", 31: "35"}
	for d, want := range checks {
		if got := series[d-1]; got.Day != d || !got.Amount.Equal(dec(want)) {
			t.Fatalf("day %d = %v, want %s", d, got, want)
		}
	}
	for i := 1; i < len(series); i++ {
		if series[i].Amount.LessThan(series[i-1].Amount) {
			t.Fatalf("series decreased at day %d", series[i].Day)
		}
	}

	if got := CumulativeMTD(nil, day("2024-02-10")); len(got) != 29 || !got[28].Amount.IsZero() {
		t.Fatalf("leap February should have 29 zero points, got %d", len(got))
	}
}

func TestMonthTotals(t *testing.T) {
	txs, budgets := january()
	now := day("2024-02-10")

	if got := PriorMonthTotal(txs, now); !got.Equal(dec("35")) {
		t.Fatalf("prior month = %s", got)
	}
	if got := CurrentMonthTotal(txs, now); !got.IsZero() {
		t.Fatalf("current month = %s", got)
	}
	if got := PriorMonthTotal(txs, day("2024-01-05")); !got.IsZero() {
		t.Fatalf("December should be empty, got %s", got)
	}
	if got := CurrentMonthBudgetTotal(budgets, day("2024-01-20")); !got.Equal(dec("100")) {
		t.Fatalf("budget total = %s", got)
	}
	if got := MonthBudgetTotal(budgets, "2024-07"); !got.IsZero() {
		t.Fatalf("missing budget should be zero, got %s", got)
	}
}

func TestBudgetVsActualDay(t *testing.T) {
	txs, budgets := january()

	points := BudgetVsActual(txs, budgets, Day, "2024-01-15")
	if len(points) != 11 {
		t.Fatalf("expected 11 points, got %d", len(points))
	}
	if points[0].Key != "2024-01-10" || points[10].Key != "2024-01-20" {
		t.Fatalf("window = %s..%s", points[0].Key, points[10].Key)
	}
	sel := points[5]
	if !sel.IsCurrent || sel.Label != "15" || sel.TooltipLabel != "Mon 15" {
		t.Fatalf("unexpected selected point %+v", sel)
	}
	if !sel.Budget.Round(2).Equal(dec("3.23")) {
		t.Fatalf("daily budget = %s, want 3.23", sel.Budget)
	}
	// Unrounded, a month of day budgets adds back up to the month budget.
	if month := sel.Budget.Mul(decimal.NewFromInt(31)).Round(8); !month.Equal(dec("100")) {
		t.Fatalf("31 daily budgets = %s, want 100", month)
	}
	if !sel.Actual.Equal(dec("20")) {
		t.Fatalf("actual = %s", sel.Actual)
	}
	for i, p := range points {
		if i != 5 && p.IsCurrent {
			t.Fatalf("only the selection is current, got %s", p.Key)
		}
	}

	// Window crossing into a month without a budget.
	points = BudgetVsActual(txs, budgets, Day, "2024-02-02")
	if points[0].Key != "2024-01-28" || !points[0].Budget.Equal(sel.Budget) {
		t.Fatalf("first point %+v", points[0])
	}
	if !points[3].Actual.Equal(dec("5")) {
		t.Fatalf("Jan 31 actual = %s", points[3].Actual)
	}
	if !points[5].Budget.IsZero() {
		t.Fatalf("February has no budget, got %s", points[5].Budget)
	}
}

func TestBudgetVsActualMonthAndYear(t *testing.T) {
	txs, budgets := january()
	budgets = append(budgets, core.MonthlyBudget{Month: "2024-03", Categories: map[core.Category]decimal.Decimal{core.Travel: dec("50")}})

	months := BudgetVsActual(txs, budgets, Month, "2024-03")
	var labels, keys []string
	for _, p := range months {
		labels = append(labels, p.Label)
		keys = append(keys, p.Key)
	}
	if !reflect.DeepEqual(labels, []string{"Oct", "Nov", "Dec", "Jan", "Feb", "Mar"}) {
		t.Fatalf("labels = %v", labels)
	}
	if keys[0] != "2023-10" || keys[5] != "2024-03" {
		t.Fatalf("keys = %v", keys)
	}
	if jan := months[3]; !jan.Budget.Equal(dec("100")) || !jan.Actual.Equal(dec("35")) || jan.TooltipLabel != "Jan" {
		t.Fatalf("january point %+v", jan)
	}
	if !months[5].IsCurrent {
		t.Fatalf("selection should be the last point")
	}

	years := BudgetVsActual(txs, budgets, Year, "2024")
	if len(years) != 3 || years[0].Key != "2022" || years[2].Key != "2024" {
		t.Fatalf("year window = %+v", years)
	}
	if !years[2].Budget.Equal(dec("150")) || !years[2].Actual.Equal(dec("35")) {
		t.Fatalf("2024 point %+v", years[2])
	}
	if !years[1].Budget.IsZero() {
		t.Fatalf("2023 budget = %s", years[1].Budget)
	}
}

func TestBudgetVsActualMalformedSelection(t *testing.T) {
	txs, budgets := january()
	if got := BudgetVsActual(txs, budgets, Month, "2024-1"); got != nil {
		t.Fatalf("expected no points, got %v", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-05-01", "30", core.Travel),
		tx("2", "2024-05-02", "30", core.Housing),
		tx("3", "2024-05-03", "45", core.Groceries),
		tx("4", "2024-05-04", "0", core.Shopping),
		tx("5", "2024-04-30", "99", core.Other),
	}

	got := CategoryBreakdown(txs, Month, "2024-05")
	want := []core.Category{core.Groceries, core.Housing, core.Travel}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i, c := range want {
		if got[i].Category != c {
			t.Fatalf("position %d = %s, want %s", i, got[i].Category, c)
		}
	}

	if got := CategoryBreakdown(txs, Year, "2020"); len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %v", got)
	}
}

func TestCategoryBreakdownSumsToPeriodTotal(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-05-01", "10", core.Groceries),
		tx("2", "2024-05-01", "7", core.Category("groceries")),
		tx("3", "2024-05-01", "4.5", core.Category("Pets")),
		tx("4", "2024-05-20", "12.25", core.Housing),
		tx("5", "2024-11-02", "3", core.Category("")),
	}
	tests := []struct {
		g         Granularity
		selection string
	}{
		{Day, "2024-05-01"},
		{Month, "2024-05"},
		{Year, "2024"},
	}
	for _, tt := range tests {
		t.Run(tt.selection, func(t *testing.T) {
			sum := decimal.Zero
			for _, c := range CategoryBreakdown(txs, tt.g, tt.selection) {
				sum = sum.Add(c.Amount)
			}
			if want := PeriodTotal(txs, tt.g, tt.selection); !sum.Equal(want) {
				t.Errorf("breakdown sums to %s, period total %s", sum, want)
			}
		})
	}

	got := CategoryBreakdown(txs, Day, "2024-05-01")
	if len(got) != 2 || got[0].Category != core.Groceries || got[0].Amount.String() != "17" || got[1].Category != core.Other {
		t.Errorf("breakdown = %v", got)
	}
}

func TestEffectiveBudget(t *testing.T) {
	savings := []core.SavingsProject{
		{ID: "s1", Name: "Vacation", Amount: dec("200"), Frequency: core.Monthly, DeductFromBudget: true},
		{ID: "s2", Name: "Car", Amount: dec("50"), Frequency: core.Weekly},
		{ID: "s3", Name: "Gym", Amount: dec("30"), Frequency: core.Weekly, DeductFromBudget: true},
		{ID: "s4", Name: "Gift", Amount: dec("80"), Frequency: core.OneTime, DeductFromBudget: true},
	}
	gross := dec("1000")

	cases := []struct {
		name string
		n    Normalizer
		want string
	}{
		{"face value", FaceValue{}, "690"},
		{"nil is face value", nil, "690"},
		{"monthly equivalent", MonthlyEquivalent{}, "670"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectiveBudget(gross, savings, tc.n).Round(2)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("effective budget = %s, want %s", got, tc.want)
			}
		})
	}

	if got := EffectiveBudget(dec("100"), savings[:1], nil); !got.Equal(dec("-100")) {
		t.Fatalf("effective budget may go negative, got %s", got)
	}
}

func TestParseNormalizer(t *testing.T) {
	n, err := ParseNormalizer("MONTHLY_EQUIVALENT")
	if err != nil || n.Name() != "monthly_equivalent" {
		t.Fatalf("got %v, %v", n, err)
	}
	if n, _ := ParseNormalizer(""); n.Name() != "face_value" {
		t.Fatalf("empty should be face value")
	}
	if _, err := ParseNormalizer("weekly"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDashboard(t *testing.T) {
	txs, _ := january()
	early := tx("4", "2024-02-01", "12.50", core.FoodDining)
	early.Time = "09:00"
	late := tx("5", "2024-02-01", "7.50", core.Transportation)
	late.Time = "18:45"
	txs = append(txs, early, late, tx("6", "2024-01-20", "1", core.Other))
	budgets := []core.MonthlyBudget{
		{Month: "2024-02", Categories: map[core.Category]decimal.Decimal{core.Housing: dec("1000"), core.Groceries: dec("500")}},
	}
	savings := []core.SavingsProject{{ID: "s1", Amount: dec("200"), Frequency: core.Monthly, DeductFromBudget: true}}

	s := Dashboard(txs, budgets, savings, day("2024-02-10"), FaceValue{})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"spent", s.Spent, "20"},
		{"prior", s.PriorMonthSpent, "36"},
		{"gross", s.GrossBudget, "1500"},
		{"deduction", s.SavingsDeduction, "200"},
		{"effective", s.EffectiveBudget, "1300"},
		{"remaining", s.Remaining, "1280"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if s.Month != "2024-02" || len(s.Series) != 29 {
		t.Fatalf("month %s with %d points", s.Month, len(s.Series))
	}

	var ids []string
	for _, r := range s.Recent {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"5", "4", "3", "6", "2"}) {
		t.Fatalf("recent = %v", ids)
	}
}

func TestFilter(t *testing.T) {
	a := tx("1", "2024-05-01", "10", core.Transportation)
	a.Vendor = "Uber"
	b := tx("2", "2024-05-03", "20", core.FoodDining)
	b.Description = "Uber Eats dinner"
	c := tx("3", "2024-05-02", "5", core.Transportation)
	d := tx("4", "2024-04-28", "1200", core.Category("housing"))
	d.IsRecurring, d.Frequency = true, core.Monthly
	txs := []core.Transaction{a, b, c, d}

	amount := func(s string) *decimal.Decimal {
		v := dec(s)
		return &v
	}

	cases := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"all newest first", Criteria{}, []string{"2", "3", "1", "4"}},
		{"vendor or description", Criteria{Query: "UBER"}, []string{"2", "1"}},
		{"category only", Criteria{Category: core.Transportation}, []string{"3", "1"}},
		{"stored category case", Criteria{Category: core.Housing}, []string{"4"}},
		{"both", Criteria{Query: "uber", Category: core.Transportation}, []string{"1"}},
		{"no match", Criteria{Query: "rent"}, nil},
		{"hide recurring", Criteria{HideRecurring: true}, []string{"2", "3", "1"}},
		{"min inclusive", Criteria{Min: amount("10")}, []string{"2", "1", "4"}},
		{"max inclusive", Criteria{Max: amount("10")}, []string{"3", "1"}},
		{"range", Criteria{Min: amount("6"), Max: amount("100")}, []string{"2", "1"}},
		{"range without recurring", Criteria{Min: amount("15"), HideRecurring: true}, []string{"2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, x := range Filter(txs, tc.criteria) {
				got = append(got, x.ID)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverBudget(t *testing.T) {
	txs := []core.Transaction{
		tx("1", "2024-05-01", "120", core.Groceries),
		tx("2", "2024-05-02", "50", core.Housing),
		tx("3", "2024-05-03", "10", core.Travel),
		tx("4", "2024-04-03", "999", core.Housing),
	}
	budgets := []core.MonthlyBudget{{Month: "2024-05", Categories: map[core.Category]decimal.Decimal{
		core.Groceries: dec("100"),
		core.Housing:   dec("50"),
		core.Travel:    dec("-5"),
	}}}

	got := OverBudget(txs, budgets, "2024-05")
	if len(got) != 1 || got[0].Category != core.Groceries || !got[0].Over().Equal(dec("20")) {
		t.Fatalf("got %+v", got)
	}
	if got := OverBudget(txs, budgets, "2024-04"); got != nil {
		t.Fatalf("month without budget should report nothing, got %+v", got)
	}
}

func TestInPeriod(t *testing.T) {
	txs, _ := january()
	got := InPeriod(txs, Month, "2024-01")
	if len(got) != 3 || got[0].ID != "3" {
		t.Fatalf("got %+v", got)
	}
}
