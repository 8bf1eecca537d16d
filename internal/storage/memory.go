package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a process-local BlobStore.
type MemoryStore struct {
	mu     sync.Mutex
	blobs  map[Collection]Blob
	closed bool
	failFn func(Collection) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[Collection]Blob)}
}

// FailWrites makes every following Put return the error produced by fn.
// A nil fn restores normal behaviour.
func (m *MemoryStore) FailWrites(fn func(Collection) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

// Seed stores body as-is, bypassing versioning. Used to load fixtures.
func (m *MemoryStore) Seed(c Collection, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[c] = Blob{Body: append([]byte(nil), body...), UpdatedAt: time.Now()}
}

func (m *MemoryStore) Get(_ context.Context, c Collection) (Blob, bool, error) {
	if !c.IsValid() {
		return Blob{}, false, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Blob{}, false, ErrStoreClosed
	}
	b, ok := m.blobs[c]
	if !ok {
		return Blob{}, false, nil
	}
	b.Body = append([]byte(nil), b.Body...)
	return b, true, nil
}

func (m *MemoryStore) Put(_ context.Context, c Collection, body []byte) (int64, error) {
	if !c.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	if m.failFn != nil {
		if err := m.failFn(c); err != nil {
			return 0, fmt.Errorf("write collection %s: %w", c, err)
		}
	}
	prev := m.blobs[c]
	m.blobs[c] = Blob{
		Body:      append([]byte(nil), body...),
		Version:   prev.Version + 1,
		UpdatedAt: time.Now(),
	}
	return prev.Version + 1, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
