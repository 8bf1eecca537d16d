package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"duobudget/internal/aggregate"
	"duobudget/internal/amqp"
	"duobudget/internal/core"
	"duobudget/internal/log"
	"duobudget/internal/storage"
)

// Snapshots is the read side of the record layer the worker needs.
type Snapshots interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
	Budgets(ctx context.Context) ([]core.MonthlyBudget, error)
	Invalidate()
}

// AlertWorker watches the current month for categories that go over budget.
// It never writes; every breach is reported once until the category drops
// back under its allocation or the month rolls over.
type AlertWorker struct {
	records Snapshots
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	month    string
	reported map[core.Category]bool
}

func NewAlertWorker(records Snapshots, logger *slog.Logger) *AlertWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertWorker{
		records:  records,
		now:      time.Now,
		logger:   logger.With(log.FieldComponent, log.ComponentWorker),
		reported: make(map[core.Category]bool),
	}
}

// WithClock replaces the time source used to pick the current month.
func (w *AlertWorker) WithClock(now func() time.Time) *AlertWorker {
	w.now = now
	return w
}

// HandleChange processes a change notice from the feed. Cached snapshots are
// dropped for every notice; only transaction and budget changes can move a
// category over budget, so only those trigger a check.
func (w *AlertWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.DebugContext(ctx, "Processing change message",
		log.FieldCollection, msg.Collection,
		log.FieldOperation, string(msg.Operation),
		log.FieldVersion, msg.Version)

	w.records.Invalidate()

	switch storage.Collection(msg.Collection) {
	case storage.CollectionTransactions, storage.CollectionBudgets:
		if _, err := w.Check(ctx); err != nil {
			return fmt.Errorf("check after %s change: %w", msg.Collection, err)
		}
	}
	return nil
}

// Check compares the current month's spend with its allocations and returns
// the breaches that were not reported before.
func (w *AlertWorker) Check(ctx context.Context) ([]aggregate.Overspend, error) {
	txs, err := w.records.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	budgets, err := w.records.Budgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("read budgets: %w", err)
	}

	month := aggregate.KeyOf(aggregate.Month, w.now())
	over := aggregate.OverBudget(txs, budgets, month)

	w.mu.Lock()
	defer w.mu.Unlock()

	if month != w.month {
		w.month = month
		w.reported = make(map[core.Category]bool)
	}

	current := make(map[core.Category]bool, len(over))
	var fresh []aggregate.Overspend
	for _, o := range over {
		current[o.Category] = true
		if w.reported[o.Category] {
			continue
		}
		fresh = append(fresh, o)
		w.logger.WarnContext(ctx, "Category over budget",
			log.FieldMonth, month,
			log.FieldCategory, string(o.Category),
			"spent", o.Spent.StringFixed(2),
			"budget", o.Budget.StringFixed(2),
			"over", o.Over().StringFixed(2))
	}
	for c := range w.reported {
		if !current[c] {
			w.logger.InfoContext(ctx, "Category back within budget",
				log.FieldMonth, month,
				log.FieldCategory, string(c))
		}
	}
	w.reported = current
	return fresh, nil
}

// StartupCheck runs one check before the worker starts consuming, so
// breaches that happened while it was down are reported.
func (w *AlertWorker) StartupCheck(ctx context.Context) error {
	fresh, err := w.Check(ctx)
	if err != nil {
		return fmt.Errorf("startup check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup check completed",
		log.FieldMonth, w.currentMonth(),
		log.FieldCount, len(fresh))
	return nil
}

// Run checks every interval until ctx is done. It catches month rollover and
// changes whose notices were lost.
func (w *AlertWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.records.Invalidate()
			if _, err := w.Check(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic budget check failed", log.FieldError, err)
			}
		}
	}
}

func (w *AlertWorker) currentMonth() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.month
}
