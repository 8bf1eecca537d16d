package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"duobudget/internal/aggregate"
	"duobudget/internal/log"
	"duobudget/internal/services"
	"duobudget/internal/sheets"
	"duobudget/internal/storage"
)

type (
	// Pinger reports whether the record store can be reached.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// HistoryReader lists recent writes of a collection.
	HistoryReader interface {
		History(ctx context.Context, c storage.Collection, limit int) ([]storage.Revision, error)
	}

	// SheetsPort reads and appends spreadsheet rows.
	SheetsPort interface {
		sheets.RowReader
		sheets.RowAppender
	}
)

// Deps are the collaborators of the API server. Data is required; the
// others are optional and disable their endpoints when nil.
type Deps struct {
	Data       *services.DataService
	Records    Pinger
	History    HistoryReader
	Sheets     SheetsPort
	Normalizer aggregate.Normalizer
	Logger     *log.Logger
	// Now overrides the clock, mainly in tests.
	Now func() time.Time
}

// Server wraps http.Server with the DuoBudget API.
type Server struct {
	http.Server

	data       *services.DataService
	records    Pinger
	history    HistoryReader
	sheets     SheetsPort
	normalizer aggregate.Normalizer
	now        func() time.Time

	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		data:        deps.Data,
		records:     deps.Records,
		history:     deps.History,
		sheets:      deps.Sheets,
		normalizer:  deps.Normalizer,
		now:         deps.Now,
		logger:      logger,
		rateLimiter: newRateLimiter(),
		metrics:     newAppMetrics(),
	}
	if s.normalizer == nil {
		s.normalizer = aggregate.FaceValue{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/suggest-category", s.handleSuggestCategory)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("PUT /api/budgets/{month}/{category}", s.handleSetBudget)

	mux.HandleFunc("GET /api/savings", s.handleListSavings)
	mux.HandleFunc("POST /api/savings", s.handleCreateSavings)
	mux.HandleFunc("PUT /api/savings/{id}", s.handleUpdateSavings)
	mux.HandleFunc("DELETE /api/savings/{id}", s.handleDeleteSavings)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile/theme", s.handleUpdateTheme)
	mux.HandleFunc("POST /api/profile/viewers", s.handleAddViewer)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/spending", s.handleSpending)
	mux.HandleFunc("GET /api/recurring", s.handleRecurring)
	mux.HandleFunc("GET /api/recurring/calendar", s.handleRecurringCalendar)
	mux.HandleFunc("GET /api/insights", s.handleInsights)

	mux.HandleFunc("POST /api/import", s.handleImportFile)
	mux.HandleFunc("POST /api/import/sheets", s.handleImportSheets)
	mux.HandleFunc("GET /api/import/template", s.handleImportTemplate)
	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/export/sheets", s.handleExportSheets)

	mux.HandleFunc("GET /api/history/{collection}", s.handleHistory)
}

// middleware wraps the mux with request logging, security headers and
// rate limiting of mutating requests.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.withSecurity(next)
	h = log.Middleware(s.logger, requestIDFromContext)(h)
	return s.withTrace(h)
}

// withTrace assigns the request ID and logs the start and end of a request.
func (s *Server) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		log.RequestStarted(ctx, reqLogger, r, clientIP)
		s.metrics.requestStarted()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		log.RequestFinished(ctx, reqLogger, r, rw.statusCode, time.Since(start), clientIP)
	})
}

// withSecurity adds security headers, flags suspicious requests and limits
// the rate of mutating requests per client.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics.security) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")

		if !isMutation(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if ok, wait := s.rateLimiter.allow(clientIP, s.metrics.security); !ok {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			NewJSONResponse().
				Status(http.StatusTooManyRequests).
				Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait))).
				Body(errorBody{Error: "rate limit exceeded, try again later"}).
				Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
