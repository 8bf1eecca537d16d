package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"duobudget/internal/cache"
	"duobudget/internal/core"
	"duobudget/internal/log"
)

// Options tunes the typed record layer.
type Options struct {
	// Seed writes the starter dataset when a collection is read for the first time.
	// When false, missing collections start empty.
	Seed bool
	// CacheTTL bounds how long a decoded snapshot is reused without re-reading the blob.
	CacheTTL time.Duration
	// Now is the clock used for seeding; defaults to time.Now.
	Now func() time.Time
	// ReadOnly never writes while loading: missing collections read as empty
	// and malformed ones are not repaired. Processes that share a store with
	// the server set it.
	ReadOnly bool
	// Logger defaults to slog.Default tagged with the storage component.
	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{Seed: true, CacheTTL: 5 * time.Minute, Now: time.Now}
}

// Records is the typed view over a BlobStore. Every read returns a copy the
// caller may keep; every write replaces a whole collection.
type Records struct {
	store    BlobStore
	now      func() time.Time
	seed     bool
	readOnly bool
	logger   *slog.Logger

	transactions *snapshot[[]core.Transaction]
	budgets      *snapshot[[]core.MonthlyBudget]
	savings      *snapshot[[]core.SavingsProject]
	profile      *snapshot[core.UserProfile]
}

func NewRecords(store BlobStore, opts Options) *Records {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With(log.FieldComponent, log.ComponentStorage)
	}
	return &Records{
		store:    store,
		now:      opts.Now,
		seed:     opts.Seed && !opts.ReadOnly,
		readOnly: opts.ReadOnly,
		logger:   opts.Logger,
		transactions: &snapshot[[]core.Transaction]{
			name:  CollectionTransactions,
			seed:  seedTransactions,
			empty: func() []core.Transaction { return []core.Transaction{} },
			clone: cloneSlice[core.Transaction],
			cache: cache.NewCell[[]core.Transaction](opts.CacheTTL),
		},
		budgets: &snapshot[[]core.MonthlyBudget]{
			name:  CollectionBudgets,
			seed:  seedBudgets,
			empty: func() []core.MonthlyBudget { return []core.MonthlyBudget{} },
			clone: cloneBudgets,
			cache: cache.NewCell[[]core.MonthlyBudget](opts.CacheTTL),
		},
		savings: &snapshot[[]core.SavingsProject]{
			name:  CollectionSavings,
			seed:  seedSavings,
			empty: func() []core.SavingsProject { return []core.SavingsProject{} },
			clone: cloneSlice[core.SavingsProject],
			cache: cache.NewCell[[]core.SavingsProject](opts.CacheTTL),
		},
		profile: &snapshot[core.UserProfile]{
			name:   CollectionProfile,
			seed:   seedProfile,
			empty:  core.NewProfile,
			clone:  core.UserProfile.Clone,
			cache:  cache.NewCell[core.UserProfile](opts.CacheTTL),
			repair: true,
			valid:  func(p core.UserProfile) bool { return core.NormalizeID(p.ID) != "" },
		},
	}
}

// RegisterCaches hands the snapshot caches to m for periodic cleanup.
func (r *Records) RegisterCaches(m *cache.Manager) {
	m.Register(string(CollectionTransactions), r.transactions.cache)
	m.Register(string(CollectionBudgets), r.budgets.cache)
	m.Register(string(CollectionSavings), r.savings.cache)
	m.Register(string(CollectionProfile), r.profile.cache)
}

// CacheStats reports the snapshot cache of every collection.
func (r *Records) CacheStats() map[Collection]cache.Stats {
	return map[Collection]cache.Stats{
		CollectionTransactions: r.transactions.cache.Stats(),
		CollectionBudgets:      r.budgets.cache.Stats(),
		CollectionSavings:      r.savings.cache.Stats(),
		CollectionProfile:      r.profile.cache.Stats(),
	}
}

// Invalidate drops every cached snapshot so the next read goes to the store.
// Processes that share a store with a writer call it when told of a change.
func (r *Records) Invalidate() {
	r.transactions.cache.Clear()
	r.budgets.cache.Clear()
	r.savings.cache.Clear()
	r.profile.cache.Clear()
}

func (r *Records) Close() error {
	return r.store.Close()
}

// Ping reads every collection once, seeding the ones that do not exist yet.
func (r *Records) Ping(ctx context.Context) error {
	if _, err := r.Transactions(ctx); err != nil {
		return err
	}
	if _, err := r.Budgets(ctx); err != nil {
		return err
	}
	if _, err := r.Savings(ctx); err != nil {
		return err
	}
	_, err := r.Profile(ctx)
	return err
}

func (r *Records) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return r.transactions.load(ctx, r)
}

func (r *Records) WriteTransactions(ctx context.Context, v []core.Transaction) (int64, error) {
	return r.transactions.save(ctx, r, v)
}

func (r *Records) Budgets(ctx context.Context) ([]core.MonthlyBudget, error) {
	return r.budgets.load(ctx, r)
}

func (r *Records) WriteBudgets(ctx context.Context, v []core.MonthlyBudget) (int64, error) {
	return r.budgets.save(ctx, r, v)
}

func (r *Records) Savings(ctx context.Context) ([]core.SavingsProject, error) {
	return r.savings.load(ctx, r)
}

func (r *Records) WriteSavings(ctx context.Context, v []core.SavingsProject) (int64, error) {
	return r.savings.save(ctx, r, v)
}

// Profile returns the singleton profile, creating it on first access.
func (r *Records) Profile(ctx context.Context) (core.UserProfile, error) {
	return r.profile.load(ctx, r)
}

func (r *Records) WriteProfile(ctx context.Context, p core.UserProfile) (int64, error) {
	return r.profile.save(ctx, r, p)
}

// snapshot serializes store access per collection so a read that misses the
// cache cannot overwrite the cache entry of a concurrent write.
type snapshot[T any] struct {
	mu    sync.Mutex
	name  Collection
	seed  func(time.Time) T
	empty func() T
	clone func(T) T
	cache *cache.Cell[T]
	// repair persists the empty value when the stored blob is unusable
	repair bool
	valid  func(T) bool
}

func (s *snapshot[T]) load(ctx context.Context, r *Records) (T, error) {
	var zero T
	if v, ok := s.cache.Get(); ok {
		return s.clone(v), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(); ok {
		return s.clone(v), nil
	}

	blob, found, err := r.store.Get(ctx, s.name)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", s.name, err)
	}

	if !found {
		// Not cached, so a read-only reader sees the owner's first write at once.
		if r.readOnly {
			return s.empty(), nil
		}
		v := s.empty()
		if r.seed {
			v = s.seed(r.now())
		}
		if _, err := s.persist(ctx, r, v); err != nil {
			return zero, fmt.Errorf("initialize %s: %w", s.name, err)
		}
		r.logger.InfoContext(ctx, "Collection initialized",
			log.FieldCollection, string(s.name),
			"seeded", r.seed)
		return s.clone(v), nil
	}

	var v T
	if err := json.Unmarshal(blob.Body, &v); err != nil || (s.valid != nil && !s.valid(v)) {
		r.logger.WarnContext(ctx, "Malformed collection treated as empty",
			log.FieldCollection, string(s.name),
			log.FieldVersion, blob.Version,
			log.FieldError, err)
		v = s.empty()
		if s.repair && !r.readOnly {
			if _, err := s.persist(ctx, r, v); err != nil {
				return zero, fmt.Errorf("repair %s: %w", s.name, err)
			}
			return s.clone(v), nil
		}
	}

	s.cache.Set(s.clone(v))
	return s.clone(v), nil
}

func (s *snapshot[T]) save(ctx context.Context, r *Records, v T) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, r, v)
}

// persist must run under s.mu.
func (s *snapshot[T]) persist(ctx context.Context, r *Records, v T) (int64, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", s.name, err)
	}
	version, err := r.store.Put(ctx, s.name, body)
	if err != nil {
		return 0, fmt.Errorf("persist %s: %w", s.name, err)
	}
	s.cache.Set(s.clone(v))
	return version, nil
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
