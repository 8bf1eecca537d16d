package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"duobudget/internal/advisor"
	"duobudget/internal/amqp"
	"duobudget/internal/core"
	"duobudget/internal/storage"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*DataService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	records := storage.NewRecords(store, storage.Options{
		Seed:     true,
		CacheTTL: time.Minute,
		Now:      func() time.Time { return testNow },
	})
	return NewDataService(records, opts...), store
}

func draft(date, desc, amount string) core.TransactionDraft {
	return core.TransactionDraft{
		Date:        date,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Category:    core.Other,
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestAddTransactionGrowsByOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	before, err := s.Transactions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	added, err := s.AddTransaction(ctx, draft("2024-06-01", "Coffee", "4.50"))
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	after, _ := s.Transactions(ctx)
	if len(after) != len(before)+1 {
		t.Fatalf("expected %d records, got %d", len(before)+1, len(after))
	}
	seen := 0
	for _, tx := range after {
		if tx.ID == added.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("new identifier must be unique, seen %d times", seen)
	}
	if after[len(after)-1].ID != added.ID {
		t.Fatalf("new record should be appended at the end")
	}
	if added.Frequency != core.OneTime {
		t.Fatalf("expected default frequency, got %q", added.Frequency)
	}
}

func TestAddTransactionRejectsInvalid(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.AddTransaction(context.Background(), draft("not-a-date", "x", "1"))
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSubscribersNotifiedInOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	var calls []string
	var lengths []int
	subA, err := s.SubscribeTransactions(ctx, func(txs []core.Transaction) {
		calls = append(calls, "a")
		lengths = append(lengths, len(txs))
	})
	if err != nil {
		t.Fatal(err)
	}
	defer subA.Unsubscribe()
	subB, _ := s.SubscribeTransactions(ctx, func(txs []core.Transaction) {
		calls = append(calls, "b")
		lengths = append(lengths, len(txs))
	})
	defer subB.Unsubscribe()

	// Both got the initial snapshot on subscribe.
	if !reflect.DeepEqual(calls, []string{"a", "b"}) || lengths[0] != 5 || lengths[1] != 5 {
		t.Fatalf("unexpected initial delivery %v %v", calls, lengths)
	}

	calls, lengths = nil, nil
	if _, err := s.AddTransaction(ctx, draft("2024-06-02", "Lunch", "12")); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(calls, []string{"a", "b"}) {
		t.Fatalf("expected a then b exactly once, got %v", calls)
	}
	if !reflect.DeepEqual(lengths, []int{6, 6}) {
		t.Fatalf("expected post-add snapshots of length 6, got %v", lengths)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	calls := 0
	sub, _ := s.SubscribeBudgets(ctx, func([]core.MonthlyBudget) { calls++ })
	sub.Unsubscribe()

	if err := s.SetBudget(ctx, "2024-06", core.Travel, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected only the initial delivery, got %d", calls)
	}
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	txs, _ := s.Transactions(ctx)

	target := txs[2]
	target.ID = "  " + target.ID + " "
	target.Description = "Rent (June)"
	if err := s.UpdateTransaction(ctx, target); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	after, _ := s.Transactions(ctx)
	if len(after) != len(txs) {
		t.Fatalf("update changed length")
	}
	if after[2].Description != "Rent (June)" || after[2].ID != txs[2].ID {
		t.Fatalf("record not replaced in place: %+v", after[2])
	}
}

func TestUpdateUnknownTransactionLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService(t)
	before, _ := s.Transactions(ctx)
	blobBefore, _, _ := store.Get(ctx, storage.CollectionTransactions)

	notified := 0
	sub, _ := s.SubscribeTransactions(ctx, func([]core.Transaction) { notified++ })
	defer sub.Unsubscribe()

	ghost := before[0]
	ghost.ID = "does-not-exist"
	err := s.UpdateTransaction(ctx, ghost)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, _ := s.Transactions(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("store contents changed")
	}
	blobAfter, _, _ := store.Get(ctx, storage.CollectionTransactions)
	if blobAfter.Version != blobBefore.Version {
		t.Fatalf("store was written: v%d -> v%d", blobBefore.Version, blobAfter.Version)
	}
	if notified != 1 {
		t.Fatalf("expected no notification beyond the initial one, got %d", notified)
	}
}

func TestDeleteTransactionIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	if err := s.DeleteTransaction(ctx, " 3 "); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	once, _ := s.Transactions(ctx)

	err := s.DeleteTransaction(ctx, "3")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not-found, got %v", err)
	}
	twice, _ := s.Transactions(ctx)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second delete changed the collection")
	}
	if len(once) != 4 {
		t.Fatalf("expected 4 records, got %d", len(once))
	}
	for _, tx := range once {
		if tx.ID == "3" {
			t.Fatalf("record 3 still present")
		}
	}
}

func TestDeleteFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService(t)
	before, _ := s.Transactions(ctx)

	notified := 0
	sub, _ := s.SubscribeTransactions(ctx, func([]core.Transaction) { notified++ })
	defer sub.Unsubscribe()

	store.FailWrites(func(storage.Collection) error { return errors.New("quota exceeded") })
	if err := s.DeleteTransaction(ctx, "1"); err == nil {
		t.Fatalf("expected persistence error")
	}
	store.FailWrites(nil)

	after, _ := s.Transactions(ctx)
	if len(after) != len(before) {
		t.Fatalf("failed delete removed the record")
	}
	if notified != 1 {
		t.Fatalf("failed write must not notify, got %d calls", notified)
	}
}

func TestAddTransactionsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, store := newTestService(t)
	before, _ := s.Transactions(ctx)

	notified := 0
	sub, _ := s.SubscribeTransactions(ctx, func([]core.Transaction) { notified++ })
	defer sub.Unsubscribe()

	bad := []core.TransactionDraft{draft("2024-06-01", "ok", "1"), draft("bad", "nope", "2")}
	if n, err := s.AddTransactions(ctx, bad); err == nil || n != 0 {
		t.Fatalf("expected 0 imported with error, got %d (%v)", n, err)
	}

	store.FailWrites(func(storage.Collection) error { return errors.New("io") })
	good := []core.TransactionDraft{draft("2024-06-01", "a", "1"), draft("2024-06-02", "b", "2")}
	if n, err := s.AddTransactions(ctx, good); err == nil || n != 0 {
		t.Fatalf("expected 0 imported on write failure, got %d (%v)", n, err)
	}
	store.FailWrites(nil)

	after, _ := s.Transactions(ctx)
	if len(after) != len(before) || notified != 1 {
		t.Fatalf("failed imports must not change anything: len %d->%d, notified %d", len(before), len(after), notified)
	}

	n, err := s.AddTransactions(ctx, good)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 imported, got %d (%v)", n, err)
	}
	if notified != 2 {
		t.Fatalf("batch should notify once, got %d", notified-1)
	}
}

func TestSetBudgetUpsert(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	if err := s.SetBudget(ctx, "2024-07", core.Travel, decimal.NewFromInt(500)); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBudget(ctx, "2024-07", core.Travel, decimal.NewFromInt(-20)); err != nil {
		t.Fatalf("negative amounts are accepted: %v", err)
	}
	if err := s.SetBudget(ctx, "2024-06", core.Housing, decimal.NewFromInt(2500)); err != nil {
		t.Fatal(err)
	}

	budgets, _ := s.Budgets(ctx)
	months := map[string]core.MonthlyBudget{}
	for _, b := range budgets {
		if _, dup := months[b.Month]; dup {
			t.Fatalf("duplicate month %s", b.Month)
		}
		months[b.Month] = b
	}
	if len(months) != 2 {
		t.Fatalf("expected 2 months, got %d", len(months))
	}
	if got := months["2024-07"].Categories[core.Travel].String(); got != "-20" {
		t.Fatalf("expected overwrite to -20, got %s", got)
	}
	if got := months["2024-06"].Categories[core.Housing].String(); got != "2500" {
		t.Fatalf("expected 2500, got %s", got)
	}
	if got := months["2024-06"].Categories[core.Groceries].String(); got != "600" {
		t.Fatalf("other categories must be kept, got %s", got)
	}

	if err := s.SetBudget(ctx, "June", core.Travel, decimal.Zero); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestSavingsProjects(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	p, err := s.AddSavingsProject(ctx, core.SavingsProject{Name: "Emergency fund", Amount: decimal.NewFromInt(100), Frequency: core.Monthly, DeductFromBudget: true})
	if err != nil {
		t.Fatal(err)
	}
	p.Amount = decimal.NewFromInt(150)
	if err := s.UpdateSavingsProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSavingsProject(ctx, " s2"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSavingsProject(ctx, "s2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ghost := p
	ghost.ID = "missing"
	if err := s.UpdateSavingsProject(ctx, ghost); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	projects, _ := s.Savings(ctx)
	if len(projects) != 2 || projects[0].ID != "s1" || !projects[1].Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected projects %+v", projects)
	}
}

func TestProfileOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	notified := 0
	sub, _ := s.SubscribeProfile(ctx, func(core.UserProfile) { notified++ })
	defer sub.Unsubscribe()

	p, err := s.GetProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.UpdateTheme(ctx, core.ThemeRose); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddViewer(ctx, "partner-1"); err != nil {
		t.Fatal(err)
	}
	got, err := s.AddViewer(ctx, " partner-1 ")
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != p.ID || got.Theme != core.ThemeRose || !reflect.DeepEqual(got.Viewers, []string{"partner-1"}) {
		t.Fatalf("unexpected profile %+v", got)
	}
	// initial + theme + first viewer; the duplicate viewer writes nothing
	if notified != 3 {
		t.Fatalf("expected 3 deliveries, got %d", notified)
	}

	if _, err := s.AddViewer(ctx, "  "); !errors.Is(err, core.ErrEmptyViewer) {
		t.Fatalf("expected ErrEmptyViewer, got %v", err)
	}
	if _, err := s.UpdateTheme(ctx, "black"); !errors.Is(err, core.ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
}

func TestChangeFeed(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	s, _ := newTestService(t, WithPublisher(pub))

	// Publish failures never fail the operation.
	if _, err := s.AddTransaction(ctx, draft("2024-06-03", "Taxi", "20")); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if err := s.SetBudget(ctx, "2024-06", core.Travel, decimal.NewFromInt(10)); err != nil {
		t.Fatal(err)
	}

	if len(pub.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(pub.msgs))
	}
	if pub.msgs[0].Collection != "transactions" || pub.msgs[0].Operation != amqp.OpAdd || pub.msgs[0].Version < 2 {
		t.Fatalf("unexpected first message %+v", pub.msgs[0])
	}
	if pub.msgs[1].Operation != amqp.OpSetBudget || pub.msgs[1].ID != "2024-06" {
		t.Fatalf("unexpected second message %+v", pub.msgs[1])
	}
}

func TestSuggestionExamples(t *testing.T) {
	txs := []core.Transaction{
		{ID: "1", Description: "Lunch", Vendor: "Cafe", Category: core.Entertainment},
		{ID: "2", Description: "Bus", Category: core.Transportation},
		{ID: "3", Description: "Lunch again", Vendor: " Cafe ", Category: core.FoodDining},
	}
	got := SuggestionExamples(txs, 30)
	want := []advisor.Example{
		{Text: "Cafe", Category: "Food & Dining"},
		{Text: "Bus", Category: "Transportation"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}

	var many []core.Transaction
	for i := 0; i < 50; i++ {
		many = append(many, core.Transaction{Description: string(rune('A' + i)), Category: core.Other})
	}
	if n := len(SuggestionExamples(many, MaxSuggestionExamples)); n != 30 {
		t.Fatalf("expected cap of 30, got %d", n)
	}
}

type fixedAdvisor struct {
	answer string
	err    error
	req    advisor.Request
}

func (f *fixedAdvisor) Suggest(_ context.Context, req advisor.Request) (string, error) {
	f.req = req
	return f.answer, f.err
}

func TestSuggestCategory(t *testing.T) {
	ctx := context.Background()

	adv := &fixedAdvisor{answer: "Groceries"}
	s, _ := newTestService(t, WithAdvisor(adv))
	c, ok := s.SuggestCategory(ctx, "Weekly shop", "")
	if !ok || c != core.Groceries {
		t.Fatalf("got %q %v", c, ok)
	}
	if len(adv.req.Examples) == 0 || len(adv.req.Categories) != 10 {
		t.Fatalf("advisor should receive history and categories: %+v", adv.req)
	}

	if _, ok := s.SuggestCategory(ctx, "", "  "); ok {
		t.Fatalf("empty input must not produce a suggestion")
	}

	s, _ = newTestService(t, WithAdvisor(&fixedAdvisor{answer: "Pets"}))
	if _, ok := s.SuggestCategory(ctx, "Dog food", ""); ok {
		t.Fatalf("values outside the enumeration are not suggestions")
	}

	s, _ = newTestService(t, WithAdvisor(&fixedAdvisor{err: advisor.ErrNoSuggestion}))
	if _, ok := s.SuggestCategory(ctx, "x", ""); ok {
		t.Fatalf("advisor errors are not suggestions")
	}

	s, _ = newTestService(t)
	if _, ok := s.SuggestCategory(ctx, "x", ""); ok {
		t.Fatalf("no advisor configured means no suggestion")
	}
}

type fixedInsights struct {
	lines []string
	err   error
}

func (f *fixedInsights) Insights(_ context.Context, lines []string) ([]advisor.Insight, error) {
	f.lines = lines
	if f.err != nil {
		return nil, f.err
	}
	return []advisor.Insight{{Title: "ok", Type: "positive"}}, nil
}

func TestInsights(t *testing.T) {
	ctx := context.Background()

	s, _ := newTestService(t)
	got, err := s.Insights(ctx)
	if err != nil || len(got) != 1 || got[0].Type != "alert" {
		t.Fatalf("expected unavailable alert, got %+v (%v)", got, err)
	}

	src := &fixedInsights{}
	s, _ = newTestService(t, WithInsights(src))
	got, _ = s.Insights(ctx)
	if len(got) != 1 || got[0].Type != "positive" || len(src.lines) != 5 {
		t.Fatalf("unexpected insights %+v lines=%d", got, len(src.lines))
	}
	if src.lines[2] != "2024-05-01: Rent Payment - $2200.00 (Housing)" {
		t.Fatalf("unexpected line format %q", src.lines[2])
	}

	s, _ = newTestService(t, WithInsights(&fixedInsights{err: errors.New("quota")}))
	got, _ = s.Insights(ctx)
	if len(got) != 1 || got[0].Title != "Analysis Failed" {
		t.Fatalf("expected failure alert, got %+v", got)
	}
}
