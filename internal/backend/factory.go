package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"duobudget/internal/amqp"
	"duobudget/internal/log"
	"duobudget/internal/storage"
)

// Opener builds a Backend from its Config.
type Opener struct {
	base   *log.Logger
	logger *slog.Logger
	dial   func(url, exchange, queue string) (*amqp.Client, error)
}

func NewOpener(logger *log.Logger) *Opener {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	return &Opener{
		base:   logger,
		logger: logger.WithComponent(log.ComponentBackend).Logger,
		dial:   amqp.NewClient,
	}
}

// Open creates the store named by cfg and, when configured, connects the
// change feed. An unreachable broker is logged and leaves Feed nil.
func (o *Opener) Open(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, history, err := o.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	records := storage.NewRecords(store, storage.Options{
		Seed:     cfg.Seed,
		CacheTTL: cfg.CacheTTL,
		Now:      time.Now,
		ReadOnly: cfg.ReadOnly,
		Logger:   o.base.WithComponent(log.ComponentStorage).Logger,
	})

	feed := o.dialFeed(ctx, cfg.Feed)

	return &Backend{
		Records: records,
		History: history,
		Feed:    feed,
		close: func() error {
			var errs []error
			if feed != nil {
				if err := feed.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := records.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (o *Opener) openStore(ctx context.Context, cfg Config) (storage.BlobStore, HistoryReader, error) {
	switch cfg.Kind {
	case KindSQLite:
		s, err := storage.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		o.logger.InfoContext(ctx, "Opened SQLite backend",
			log.FieldPath, cfg.SQLitePath,
			log.FieldVersion, s.SchemaVersion())
		return s, s, nil
	case KindMemory:
		o.logger.InfoContext(ctx, "Opened memory backend", "seeded", cfg.Seed)
		return storage.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w %q", errUnknownKind, cfg.Kind)
	}
}

func (o *Opener) dialFeed(ctx context.Context, fc FeedConfig) *amqp.Client {
	if !fc.enabled() {
		return nil
	}
	client, err := o.dial(fc.URL, fc.Exchange, fc.Queue)
	if err != nil {
		o.logger.WarnContext(ctx, "AMQP unavailable, continuing without change feed", log.FieldError, err)
		return nil
	}
	o.logger.InfoContext(ctx, "Connected change feed",
		"exchange", fc.Exchange,
		"queue", fc.Queue)
	return client
}
