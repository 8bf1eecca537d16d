// Package bus delivers collection snapshots to registered handlers.
//
// Delivery is synchronous and follows registration order. Every Notify pass
// works on the handler list as it was when the pass started, so handlers may
// unsubscribe themselves or others without disturbing the current pass.
package bus

import "sync"

// Handler receives a full snapshot, never a diff.
type Handler[T any] func(T)

// Bus fans one collection's snapshots out to its subscribers.
type Bus[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []entry[T]
}

type entry[T any] struct {
	id uint64
	fn Handler[T]
}

// Subscription is the token returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the handler from every future notification.
// Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe appends fn to the delivery list.
func (b *Bus[T]) Subscribe(fn Handler[T]) *Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, entry[T]{id: id, fn: fn})
	b.mu.Unlock()

	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.handlers {
		if e.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Notify calls every registered handler with snapshot, in registration order.
func (b *Bus[T]) Notify(snapshot T) {
	b.mu.Lock()
	pass := make([]entry[T], len(b.handlers))
	copy(pass, b.handlers)
	b.mu.Unlock()

	for _, e := range pass {
		e.fn(snapshot)
	}
}

// Len reports how many handlers are registered.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
