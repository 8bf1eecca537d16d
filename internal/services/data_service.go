package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"duobudget/internal/amqp"
	"duobudget/internal/bus"
	"duobudget/internal/core"
	"duobudget/internal/log"
	"duobudget/internal/storage"

	"github.com/shopspring/decimal"
)

// ChangePublisher forwards change notices to other processes.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
	Close() error
}

// DataService owns the record store. Every mutation persists the whole
// collection and then notifies subscribers before returning.
//
// Mutations and subscriptions are serialized by one lock that is held while
// handlers run. Handlers may read snapshots but must not call mutating
// methods synchronously.
type DataService struct {
	mu        sync.Mutex
	records   *storage.Records
	publisher ChangePublisher
	advisor   CategoryAdvisor
	insights  InsightSource
	logger    *slog.Logger

	transactions *bus.Bus[[]core.Transaction]
	budgets      *bus.Bus[[]core.MonthlyBudget]
	savings      *bus.Bus[[]core.SavingsProject]
	profile      *bus.Bus[core.UserProfile]
}

// Option configures a DataService.
type Option func(*DataService)

// WithPublisher enables the AMQP change feed.
func WithPublisher(p ChangePublisher) Option {
	return func(s *DataService) { s.publisher = p }
}

// WithAdvisor enables category suggestions.
func WithAdvisor(a CategoryAdvisor) Option {
	return func(s *DataService) { s.advisor = a }
}

// WithInsights enables spending insights.
func WithInsights(i InsightSource) Option {
	return func(s *DataService) { s.insights = i }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *DataService) { s.logger = l }
}

func NewDataService(records *storage.Records, opts ...Option) *DataService {
	s := &DataService{
		records:      records,
		logger:       slog.Default(),
		transactions: bus.New[[]core.Transaction](),
		budgets:      bus.New[[]core.MonthlyBudget](),
		savings:      bus.New[[]core.SavingsProject](),
		profile:      bus.New[core.UserProfile](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.FieldComponent, log.ComponentData)
	return s
}

// --- snapshots ---

func (s *DataService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return s.records.Transactions(ctx)
}

func (s *DataService) Budgets(ctx context.Context) ([]core.MonthlyBudget, error) {
	return s.records.Budgets(ctx)
}

func (s *DataService) Savings(ctx context.Context) ([]core.SavingsProject, error) {
	return s.records.Savings(ctx)
}

// --- subscriptions ---

// SubscribeTransactions hands the current snapshot to fn, then registers it.
// No mutation can happen between the two steps.
func (s *DataService) SubscribeTransactions(ctx context.Context, fn func([]core.Transaction)) (*bus.Subscription, error) {
	return subscribe(ctx, s, s.transactions, s.records.Transactions, fn)
}

func (s *DataService) SubscribeBudgets(ctx context.Context, fn func([]core.MonthlyBudget)) (*bus.Subscription, error) {
	return subscribe(ctx, s, s.budgets, s.records.Budgets, fn)
}

func (s *DataService) SubscribeSavings(ctx context.Context, fn func([]core.SavingsProject)) (*bus.Subscription, error) {
	return subscribe(ctx, s, s.savings, s.records.Savings, fn)
}

func (s *DataService) SubscribeProfile(ctx context.Context, fn func(core.UserProfile)) (*bus.Subscription, error) {
	return subscribe(ctx, s, s.profile, s.records.Profile, fn)
}

func subscribe[T any](ctx context.Context, s *DataService, b *bus.Bus[T], read func(context.Context) (T, error), fn func(T)) (*bus.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := read(ctx)
	if err != nil {
		return nil, err
	}
	fn(current)
	return b.Subscribe(fn), nil
}

// --- transactions ---

// AddTransaction assigns a fresh identifier and appends the record.
func (s *DataService) AddTransaction(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	txs, err := s.records.Transactions(ctx)
	if err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	t := d.WithID(core.NewID())
	updated := append(txs, t)
	version, err := s.commitTransactions(ctx, updated)
	s.mu.Unlock()
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, t.ID,
		log.FieldCategory, string(t.Category),
		log.FieldAmount, t.Amount.String())
	s.publish(ctx, storage.CollectionTransactions, amqp.OpAdd, t.ID, 1, version)
	return t, nil
}

// AddTransactions appends a batch atomically: either every draft is added
// with one persist and one notification, or none is.
func (s *DataService) AddTransactions(ctx context.Context, drafts []core.TransactionDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	batch := make([]core.Transaction, 0, len(drafts))
	for i, d := range drafts {
		d = d.Normalized()
		if err := d.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		batch = append(batch, d.WithID(core.NewID()))
	}

	s.mu.Lock()
	txs, err := s.records.Transactions(ctx)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	version, err := s.commitTransactions(ctx, append(txs, batch...))
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Transactions imported", log.FieldOperation, log.OpImport, log.FieldCount, len(batch))
	s.publish(ctx, storage.CollectionTransactions, amqp.OpImport, "", len(batch), version)
	return len(batch), nil
}

// UpdateTransaction replaces the record with the same identifier in place.
// An unknown identifier yields core.ErrNotFound and leaves the store untouched.
func (s *DataService) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	d := t.Draft().Normalized()
	if err := d.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	txs, err := s.records.Transactions(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(txs, t.ID, func(x core.Transaction) string { return x.ID })
	if i < 0 {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Transaction not found", log.FieldOperation, log.OpUpdate, log.FieldRecordID, t.ID)
		return fmt.Errorf("update transaction %q: %w", core.NormalizeID(t.ID), core.ErrNotFound)
	}
	id := txs[i].ID
	txs[i] = d.WithID(id)
	version, err := s.commitTransactions(ctx, txs)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction updated", log.FieldOperation, log.OpUpdate, log.FieldRecordID, id)
	s.publish(ctx, storage.CollectionTransactions, amqp.OpUpdate, id, 1, version)
	return nil
}

// DeleteTransaction removes exactly one record. An unknown identifier yields
// core.ErrNotFound without any write or notification.
func (s *DataService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	txs, err := s.records.Transactions(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(txs, id, func(x core.Transaction) string { return x.ID })
	if i < 0 {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Transaction not found", log.FieldOperation, log.OpDelete, log.FieldRecordID, id)
		return fmt.Errorf("delete transaction %q: %w", core.NormalizeID(id), core.ErrNotFound)
	}
	updated := append(txs[:i:i], txs[i+1:]...)
	version, err := s.commitTransactions(ctx, updated)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldOperation, log.OpDelete, log.FieldRecordID, id, log.FieldCount, len(updated))
	s.publish(ctx, storage.CollectionTransactions, amqp.OpDelete, core.NormalizeID(id), 1, version)
	return nil
}

// commitTransactions must run under s.mu.
func (s *DataService) commitTransactions(ctx context.Context, txs []core.Transaction) (int64, error) {
	version, err := s.records.WriteTransactions(ctx, txs)
	if err != nil {
		return 0, err
	}
	s.transactions.Notify(cloneSlice(txs))
	return version, nil
}

// --- budgets ---

// SetBudget upserts the amount of one category for month. Negative amounts
// are stored as given.
func (s *DataService) SetBudget(ctx context.Context, month string, category core.Category, amount decimal.Decimal) error {
	month = strings.TrimSpace(month)
	if err := core.ValidateMonthKey(month); err != nil {
		return err
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidCategory, category)
	}

	s.mu.Lock()
	budgets, err := s.records.Budgets(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := -1
	for j, b := range budgets {
		if b.Month == month {
			i = j
			break
		}
	}
	if i < 0 {
		budgets = append(budgets, core.MonthlyBudget{Month: month, Categories: map[core.Category]decimal.Decimal{}})
		i = len(budgets) - 1
	}
	if budgets[i].Categories == nil {
		budgets[i].Categories = map[core.Category]decimal.Decimal{}
	}
	budgets[i].Categories[category] = amount

	version, err := s.records.WriteBudgets(ctx, budgets)
	if err == nil {
		s.budgets.Notify(cloneBudgets(budgets))
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldOperation, log.OpUpdate,
		log.FieldMonth, month,
		log.FieldCategory, string(category),
		log.FieldAmount, amount.String())
	s.publish(ctx, storage.CollectionBudgets, amqp.OpSetBudget, month, 1, version)
	return nil
}

// --- savings ---

func (s *DataService) AddSavingsProject(ctx context.Context, p core.SavingsProject) (core.SavingsProject, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Frequency == "" {
		p.Frequency = core.Monthly
	}
	if err := p.Validate(); err != nil {
		return core.SavingsProject{}, err
	}

	s.mu.Lock()
	projects, err := s.records.Savings(ctx)
	if err != nil {
		s.mu.Unlock()
		return core.SavingsProject{}, err
	}
	p.ID = core.NewID()
	version, err := s.commitSavings(ctx, append(projects, p))
	s.mu.Unlock()
	if err != nil {
		return core.SavingsProject{}, err
	}

	s.logger.InfoContext(ctx, "Savings project added", log.FieldOperation, log.OpCreate, log.FieldRecordID, p.ID)
	s.publish(ctx, storage.CollectionSavings, amqp.OpAdd, p.ID, 1, version)
	return p, nil
}

// UpdateSavingsProject follows the same not-found rule as UpdateTransaction.
func (s *DataService) UpdateSavingsProject(ctx context.Context, p core.SavingsProject) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	projects, err := s.records.Savings(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(projects, p.ID, func(x core.SavingsProject) string { return x.ID })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update savings project %q: %w", core.NormalizeID(p.ID), core.ErrNotFound)
	}
	p.ID = projects[i].ID
	projects[i] = p
	version, err := s.commitSavings(ctx, projects)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, storage.CollectionSavings, amqp.OpUpdate, p.ID, 1, version)
	return nil
}

func (s *DataService) DeleteSavingsProject(ctx context.Context, id string) error {
	s.mu.Lock()
	projects, err := s.records.Savings(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(projects, id, func(x core.SavingsProject) string { return x.ID })
	if i < 0 {
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "Savings project not found", log.FieldOperation, log.OpDelete, log.FieldRecordID, id)
		return fmt.Errorf("delete savings project %q: %w", core.NormalizeID(id), core.ErrNotFound)
	}
	version, err := s.commitSavings(ctx, append(projects[:i:i], projects[i+1:]...))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, storage.CollectionSavings, amqp.OpDelete, core.NormalizeID(id), 1, version)
	return nil
}

// commitSavings must run under s.mu.
func (s *DataService) commitSavings(ctx context.Context, projects []core.SavingsProject) (int64, error) {
	version, err := s.records.WriteSavings(ctx, projects)
	if err != nil {
		return 0, err
	}
	s.savings.Notify(cloneSlice(projects))
	return version, nil
}

// --- profile ---

// GetProfile returns the singleton profile, creating it on first access.
func (s *DataService) GetProfile(ctx context.Context) (core.UserProfile, error) {
	return s.records.Profile(ctx)
}

func (s *DataService) UpdateTheme(ctx context.Context, theme core.ThemeColor) (core.UserProfile, error) {
	if !theme.IsValid() {
		return core.UserProfile{}, fmt.Errorf("%w: %q", core.ErrInvalidTheme, theme)
	}
	return s.updateProfile(ctx, func(p *core.UserProfile) bool {
		if p.Theme == theme {
			return false
		}
		p.Theme = theme
		return true
	})
}

// AddViewer grants read access to viewer. Adding a present viewer is a no-op.
func (s *DataService) AddViewer(ctx context.Context, viewer string) (core.UserProfile, error) {
	viewer = core.NormalizeID(viewer)
	if viewer == "" {
		return core.UserProfile{}, core.ErrEmptyViewer
	}
	return s.updateProfile(ctx, func(p *core.UserProfile) bool {
		if p.HasViewer(viewer) {
			return false
		}
		p.Viewers = append(p.Viewers, viewer)
		return true
	})
}

func (s *DataService) updateProfile(ctx context.Context, mutate func(*core.UserProfile) bool) (core.UserProfile, error) {
	s.mu.Lock()
	p, err := s.records.Profile(ctx)
	if err != nil {
		s.mu.Unlock()
		return core.UserProfile{}, err
	}
	if !mutate(&p) {
		s.mu.Unlock()
		return p, nil
	}
	version, err := s.records.WriteProfile(ctx, p)
	if err == nil {
		s.profile.Notify(p.Clone())
	}
	s.mu.Unlock()
	if err != nil {
		return core.UserProfile{}, err
	}

	s.publish(ctx, storage.CollectionProfile, amqp.OpProfile, p.ID, 1, version)
	return p, nil
}

// --- change feed ---

func (s *DataService) publish(ctx context.Context, c storage.Collection, op amqp.Operation, id string, count int, version int64) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewChangeMessage(string(c), op, id, version)
	msg.Count = count
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		// The write is committed; the feed is best effort
		s.logger.ErrorContext(ctx, "Failed to publish change message",
			log.FieldCollection, string(c),
			log.FieldOperation, string(op),
			log.FieldError, err)
		return
	}
	log.ChangeEmitted(ctx, s.logger, string(c), string(op), version, count)
}

// Close releases the store and the publisher.
func (s *DataService) Close() error {
	var errs []error

	if s.records != nil {
		if err := s.records.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close data service: %w", errors.Join(errs...))
	}

	return nil
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i, item := range items {
		if core.SameID(idOf(item), id) {
			return i
		}
	}
	return -1
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneBudgets(in []core.MonthlyBudget) []core.MonthlyBudget {
	out := make([]core.MonthlyBudget, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
