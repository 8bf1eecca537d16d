// Package backend opens the record store and the optional change feed
// selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duobudget/internal/amqp"
	"duobudget/internal/config"
	"duobudget/internal/storage"
)

// Kind names a record store implementation.
type Kind string

const (
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// Kinds lists every supported store.
var Kinds = []Kind{KindSQLite, KindMemory}

var errUnknownKind = errors.New("unknown data backend")

// ParseKind maps a DATA_BACKEND value to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	names := make([]string, len(Kinds))
	for i, known := range Kinds {
		names[i] = string(known)
	}
	return "", fmt.Errorf("%w %q: must be one of %s", errUnknownKind, s, strings.Join(names, ", "))
}

// FeedConfig locates the AMQP change feed. An empty URL disables it.
type FeedConfig struct {
	URL      string
	Exchange string
	Queue    string
}

func (f FeedConfig) enabled() bool { return f.URL != "" }

// Config selects and tunes the backend.
type Config struct {
	Kind       Kind
	SQLitePath string

	// Seed fills empty collections with the demo dataset on first read.
	Seed     bool
	CacheTTL time.Duration
	// ReadOnly opens the records without ever writing on load.
	ReadOnly bool

	Feed FeedConfig
}

// FromAppConfig extracts the backend settings from the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	kind, err := ParseKind(app.DataBackend)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Kind:       kind,
		SQLitePath: app.SQLiteDBPath,
		Seed:       app.SeedDemoData,
		CacheTTL:   app.CacheTTL,
		Feed: FeedConfig{
			URL:      app.AMQPURL,
			Exchange: app.AMQPExchange,
			Queue:    app.AMQPQueue,
		},
	}, nil
}

func (c Config) Validate() error {
	var problems []string
	switch c.Kind {
	case KindSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLite database path is required for the sqlite backend")
		}
	case KindMemory:
	default:
		problems = append(problems, fmt.Sprintf("%v %q", errUnknownKind, c.Kind))
	}
	if c.Feed.enabled() && (c.Feed.Exchange == "" || c.Feed.Queue == "") {
		problems = append(problems, "AMQP exchange and queue are required when an AMQP URL is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("backend config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HistoryReader lists the recent writes of a collection.
type HistoryReader interface {
	History(ctx context.Context, c storage.Collection, limit int) ([]storage.Revision, error)
}

// Backend is an opened record layer with its optional extras.
type Backend struct {
	Records *storage.Records
	// History is nil for stores that keep no write log.
	History HistoryReader
	// Feed is nil when no AMQP URL is configured or the broker is unreachable.
	Feed *amqp.Client

	close func() error
}

// Close releases the feed connection and the store.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}
