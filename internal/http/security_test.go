package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct client", "203.0.113.7:5555", nil, "203.0.113.7"},
		{"untrusted peer cannot spoof", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"trusted proxy forwards", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.2"}, "198.51.100.9"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.10"}, "198.51.100.10"},
		{"garbage header ignored", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"no port", "198.51.100.11", nil, "198.51.100.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal", http.MethodGet, "/api/transactions?q=coffee", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"probe", http.MethodGet, "/wp-admin/", "", true},
		{"injection in query", http.MethodGet, "/api/transactions?q=javascript:alert(1)", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}

	metrics := &securityMetrics{}
	flagged := int64(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := detectSuspiciousRequest(r, metrics); got != tt.want {
				t.Errorf("detectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
			if tt.want {
				flagged++
			}
		})
	}
	if metrics.suspiciousRequests != flagged {
		t.Errorf("suspiciousRequests = %d, want %d", metrics.suspiciousRequests, flagged)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter()
	defer rl.stop()
	rl.limit = 3
	rl.now = func() time.Time { return now }
	metrics := &securityMetrics{}

	for i := 0; i < 3; i++ {
		if ok, _ := rl.allow("a", metrics); !ok {
			t.Fatalf("request %d rejected", i)
		}
	}
	now = now.Add(15 * time.Second)
	ok, wait := rl.allow("a", metrics)
	if ok {
		t.Fatal("fourth request allowed")
	}
	if wait != 45*time.Second {
		t.Errorf("wait = %v, want 45s", wait)
	}
	if ok, _ := rl.allow("b", metrics); !ok {
		t.Error("other client limited")
	}
	if metrics.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d", metrics.rateLimitHits)
	}

	now = now.Add(46 * time.Second)
	if ok, _ := rl.allow("a", metrics); !ok {
		t.Error("window did not reset")
	}

	now = now.Add(11 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Errorf("removed %d stale clients, want 2", removed)
	}
	if rl.activeClients() != 0 {
		t.Errorf("activeClients = %d", rl.activeClients())
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{45 * time.Second, 45},
		{59*time.Second + time.Millisecond, 60},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.wait); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.wait, got, tt.want)
		}
	}
}
