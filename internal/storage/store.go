package storage

import (
	"context"
	"errors"
	"time"
)

// Collection names one independently versioned blob.
type Collection string

const (
	CollectionTransactions Collection = "transactions"
	CollectionBudgets      Collection = "budgets"
	CollectionSavings      Collection = "savings"
	CollectionProfile      Collection = "profile"
)

// Collections lists every persisted collection.
func Collections() []Collection {
	return []Collection{CollectionTransactions, CollectionBudgets, CollectionSavings, CollectionProfile}
}

func (c Collection) IsValid() bool {
	switch c {
	case CollectionTransactions, CollectionBudgets, CollectionSavings, CollectionProfile:
		return true
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrStoreClosed       = errors.New("store closed")
)

// Blob is the serialized form of a whole collection.
type Blob struct {
	Body      []byte
	Version   int64
	UpdatedAt time.Time
}

// BlobStore persists whole collections. Put replaces the previous body
// atomically: either the new body and version are visible or the old ones are.
type BlobStore interface {
	Get(ctx context.Context, c Collection) (Blob, bool, error)
	Put(ctx context.Context, c Collection, body []byte) (int64, error)
	Close() error
}
