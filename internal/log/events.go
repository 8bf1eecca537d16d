package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RequestStarted logs an incoming request at debug level.
func RequestStarted(ctx context.Context, l *Logger, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	l.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// RequestFinished logs a served request. Client errors are warnings and
// server errors are errors.
func RequestFinished(ctx context.Context, l *Logger, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(status, elapsed).
		WithClientIP(clientIP)
	l.Log(ctx, levelForStatus(status), "HTTP request completed", fields.ToSlice()...)
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Failure logs err for operation op together with any extra fields.
func Failure(ctx context.Context, l *Logger, msg string, err error, op string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	l.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(op).ToSlice()...)
}

// ChangeEmitted logs a change notice that went out on the feed.
func ChangeEmitted(ctx context.Context, l *slog.Logger, collection, op string, version int64, count int) {
	fields := NewFields().
		WithChange(collection, version, count).
		WithOperation(op)
	l.DebugContext(ctx, "Change notice published", fields.ToSlice()...)
}
