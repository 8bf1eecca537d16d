package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"duobudget/internal/cache"
	"duobudget/internal/log"
	"duobudget/internal/storage"
)

// fail writes the error response for err and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
		return
	}
	if errors.Is(err, errMalformed) {
		BadRequestError(err.Error()).Write(w)
		return
	}

	resp := ErrorFor(err)
	if statusFor(err) == http.StatusInternalServerError {
		log.Failure(r.Context(), s.logger, "Request failed", err, op,
			log.NewFields().
				WithRequestID(RequestID(r.Context())).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	}
	resp.Write(w)
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	switch {
	case s.data == nil:
		checks["data"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	case s.records == nil:
		checks["store"] = "not_configured"
	default:
		if err := s.records.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	if s.sheets != nil {
		checks["sheets"] = "configured"
	} else {
		checks["sheets"] = "disabled"
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	m := s.metrics
	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %.0f\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", atomic.LoadInt64(&m.requests))
	counter("mutations_total", "Total number of successful mutations", atomic.LoadInt64(&m.mutations))
	counter("imported_rows_total", "Total number of imported transactions", atomic.LoadInt64(&m.imported))
	counter("rate_limit_hits_total", "Total rate limit hits", atomic.LoadInt64(&m.security.rateLimitHits))
	counter("suspicious_requests_total", "Total suspicious requests detected", atomic.LoadInt64(&m.security.suspiciousRequests))
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(s.rateLimiter.activeClients()))
	gauge("uptime_seconds", "Application uptime in seconds", time.Since(m.started).Seconds())

	stats, ok := s.records.(cacheStatser)
	if !ok {
		return
	}
	snapshot := stats.CacheStats()
	names := make([]string, 0, len(snapshot))
	for c := range snapshot {
		names = append(names, string(c))
	}
	sort.Strings(names)
	for _, metric := range []struct {
		name, help string
		value      func(cache.Stats) uint64
	}{
		{"snapshot_cache_hits_total", "Snapshot reads served from cache", func(st cache.Stats) uint64 { return st.Hits }},
		{"snapshot_cache_misses_total", "Snapshot reads that went to the store", func(st cache.Stats) uint64 { return st.Misses }},
	} {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", metric.name, metric.help, metric.name)
		for _, name := range names {
			fmt.Fprintf(w, "%s{collection=%q} %d\n", metric.name, name, metric.value(snapshot[storage.Collection(name)]))
		}
		fmt.Fprintln(w)
	}
}

// cacheStatser is implemented by record layers that cache snapshots.
type cacheStatser interface {
	CacheStats() map[storage.Collection]cache.Stats
}

// handleHistory lists the latest writes of one collection.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	c := storage.Collection(r.PathValue("collection"))
	if !c.IsValid() {
		NotFoundError(fmt.Sprintf("unknown collection %q", c)).Write(w)
		return
	}
	if s.history == nil {
		ServiceUnavailableError("history is not kept by this backend").Write(w)
		return
	}
	limit, err := ParseLimit(r.URL.Query(), "limit", 20, 100)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	revs, err := s.history.History(r.Context(), c, limit)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	if revs == nil {
		revs = []storage.Revision{}
	}
	NewJSONResponse().Body(revs).Write(w)
}
