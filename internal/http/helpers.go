package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

type requestIDKey struct{}

// requestIDFromContext returns the ID assigned by withTrace.
func requestIDFromContext(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// appMetrics are the counters exposed on /metrics.
type appMetrics struct {
	started   time.Time
	requests  int64
	mutations int64
	imported  int64
	security  *securityMetrics
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now(), security: &securityMetrics{}}
}

func (m *appMetrics) requestStarted() {
	atomic.AddInt64(&m.requests, 1)
}

func (m *appMetrics) mutated() {
	atomic.AddInt64(&m.mutations, 1)
}

func (m *appMetrics) importedRows(n int) {
	atomic.AddInt64(&m.imported, int64(n))
}
