package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking/pkg/logging"
)

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()
	h := rl.Middleware(okHandler(nil))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/availability", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("10.0.0.1:1111") != http.StatusOK || do("10.0.0.1:2222") != http.StatusOK {
		t.Fatalf("expected burst of 2 to pass")
	}
	if got := do("10.0.0.1:3333"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", got)
	}
	if got := do("10.0.0.2:1111"); got != http.StatusOK {
		t.Fatalf("other clients must not be limited, got %d", got)
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()
	rl.Allow("10.0.0.1")
	rl.evictIdle(time.Now().Add(time.Minute))
	if len(rl.clients) != 0 {
		t.Fatalf("expected idle client to be evicted")
	}
}

func TestAdminToken(t *testing.T) {
	h := AdminToken("s3cret")(okHandler(nil))

	cases := map[string]struct {
		header, value string
		want          int
	}{
		"missing":      {"", "", http.StatusUnauthorized},
		"wrong":        {"X-Admin-Token", "nope", http.StatusUnauthorized},
		"header token": {"X-Admin-Token", "s3cret", http.StatusOK},
		"bearer token": {"Authorization", "Bearer s3cret", http.StatusOK},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: expected %d, got %d", name, tc.want, rec.Code)
		}
	}

	open := AdminToken("")(okHandler(nil))
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/cache", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty token should leave route open, got %d", rec.Code)
	}
}

func TestRequestLoggerRecordsStatusAndID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")
	h := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line: %v", err)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("expected status 418 logged, got %v", entry["status"])
	}
	if entry["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Fatalf("logged id %v does not match header", entry["request_id"])
	}
}
