package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestCellExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCell[[]string](time.Minute).WithClock(clock.now)

	if _, ok := c.Get(); ok {
		t.Fatal("empty cell reported a value")
	}
	c.Set([]string{"groceries"})
	clock.t = clock.t.Add(30 * time.Second)
	if v, ok := c.Get(); !ok || len(v) != 1 {
		t.Fatalf("Get() = %v, %v", v, ok)
	}
	if st := c.Stats(); !st.Filled || st.Age != 30*time.Second {
		t.Errorf("stats = %+v", st)
	}

	clock.t = clock.t.Add(time.Minute)
	if _, ok := c.Get(); ok {
		t.Fatal("stale value served")
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Filled {
		t.Errorf("stats = %+v", st)
	}
}

func TestCellWithoutTTL(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewCell[int](0).WithClock(clock.now)
	c.Set(7)
	clock.t = clock.t.Add(365 * 24 * time.Hour)

	if v, ok := c.Get(); !ok || v != 7 {
		t.Fatalf("Get() = %v, %v", v, ok)
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("CleanExpired() = %d", n)
	}
	c.Clear()
	if _, ok := c.Get(); ok {
		t.Error("value survived Clear")
	}
}

func TestManagerCleanOnce(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	a := NewCell[int](time.Second).WithClock(clock.now)
	b := NewCell[string](time.Second).WithClock(clock.now)
	a.Set(1)
	b.Set("x")

	m := NewManager()
	m.Register("a", a)
	m.Register("b", b)

	if n := m.CleanOnce(); n != 0 {
		t.Fatalf("expected nothing to clean, got %d", n)
	}
	clock.t = clock.t.Add(time.Hour)
	if n := m.CleanOnce(); n != 2 {
		t.Fatalf("expected 2 cleaned, got %d", n)
	}
}

func TestManagerRunStopsOnCancel(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
