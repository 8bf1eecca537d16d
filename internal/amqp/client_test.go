package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, maxBackoff},
		{12, maxBackoff},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.want {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"closed sentinel", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"eof", io.ErrUnexpectedEOF, true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"channel closed", errors.New("Exception (504) Reason: \"channel closed\""), true},
		{"bad payload", errors.New("invalid message body"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	b := newBreaker(3, time.Minute)
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		b.failure()
		if !b.allow() {
			t.Fatalf("breaker opened after %d failures", i+1)
		}
	}
	b.failure()
	if b.allow() || b.current() != breakerOpen {
		t.Fatalf("breaker %s after threshold", b.current())
	}

	now = now.Add(59 * time.Second)
	if b.allow() {
		t.Fatal("breaker let a publish through during cooldown")
	}

	now = now.Add(2 * time.Second)
	if !b.allow() || b.current() != breakerHalfOpen {
		t.Fatalf("breaker %s after cooldown", b.current())
	}

	// A failed trial reopens at once.
	b.failure()
	if b.current() != breakerOpen {
		t.Fatalf("breaker %s after failed trial", b.current())
	}

	now = now.Add(2 * time.Minute)
	b.allow()
	b.success()
	if b.current() != breakerClosed || b.failures != 0 {
		t.Errorf("breaker %s with %d failures after success", b.current(), b.failures)
	}
}

func TestPublishChangeWithOpenBreaker(t *testing.T) {
	c := &Client{exchangeName: "duobudget", queueName: "alerts", breaker: newBreaker(1, time.Hour)}
	c.breaker.failure()

	err := c.PublishChange(context.Background(), NewChangeMessage("transactions", OpAdd, "abc", 3))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("PublishChange() = %v, want ErrCircuitOpen", err)
	}
}

func TestPublishChangeCancelled(t *testing.T) {
	c := &Client{exchangeName: "duobudget", queueName: "alerts", breaker: newBreaker(maxFailures, openTimeout)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.PublishChange(ctx, NewChangeMessage("budgets", OpSetBudget, "", 1)); !errors.Is(err, context.Canceled) {
		t.Errorf("PublishChange() = %v, want context.Canceled", err)
	}
	if c.breaker.current() != breakerClosed {
		t.Error("cancellation counted as a broker failure")
	}
}

func TestNewChangeMessage(t *testing.T) {
	msg := NewChangeMessage("budgets", OpSetBudget, "", 7)

	if msg.Collection != "budgets" || msg.Operation != OpSetBudget || msg.Version != 7 {
		t.Errorf("NewChangeMessage() = %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("timestamp is not recent")
	}
}

func TestChangeMessageFromJSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	body, err := (&ChangeMessage{
		Collection: "transactions",
		Operation:  OpImport,
		Count:      12,
		Version:    2,
		Timestamp:  ts,
	}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ChangeMessageFromJSON() error = %v", err)
	}
	if parsed.Count != 12 || parsed.Operation != OpImport || !parsed.Timestamp.Equal(ts) {
		t.Errorf("parsed = %+v", parsed)
	}

	for name, bad := range map[string]string{
		"truncated":          `{"collection":`,
		"missing operation":  `{"collection":"savings","version":1}`,
		"missing collection": `{"operation":"add","version":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ChangeMessageFromJSON([]byte(bad)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
