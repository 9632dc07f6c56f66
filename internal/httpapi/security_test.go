package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"latiafanny/backend/internal/domain"
)

func TestRequestLogLineNamesTheActor(t *testing.T) {
	var logs bytes.Buffer
	api := newTestAPIWithLogger(t, zerolog.New(&logs))
	handler := api.Handler()
	token := login(t, handler, "admin", "admin123")
	logs.Reset()

	rec := do(t, handler, http.MethodGet, "/api/v1/auth/me", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var line map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", raw, err)
		}
		if entry["message"] == "request" {
			line = entry
		}
	}
	if line == nil {
		t.Fatalf("no request log line in %s", logs.String())
	}
	if line["actor"] != "admin" {
		t.Fatalf("expected actor on request line, got %v", line)
	}
	if line["path"] != "/api/v1/auth/me" || line["status"] != float64(http.StatusOK) {
		t.Fatalf("unexpected request line %v", line)
	}
}

func TestAttemptLimiterForgetsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	limiter := newAttemptLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !limiter.Allow(ip) {
			t.Fatalf("first attempt from %s should pass", ip)
		}
	}
	limiter.Allow("10.0.0.1")
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("third attempt inside the window should be refused")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.Allow("10.0.0.4") {
		t.Fatalf("new client should pass")
	}
	if len(limiter.entries) != 1 {
		t.Fatalf("expected idle clients to be dropped, still tracking %d", len(limiter.entries))
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatalf("client should be allowed again after the window")
	}
}

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
	if got := res.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("expected a generated request id")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "till-2-0042")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-ID"); got != "till-2-0042" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Fatalf("expected DELETE to be allowed, got %q", got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := login(t, handler, "admin", "admin123")

	rec := do(t, handler, http.MethodDelete, "/api/v1/products/1", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodDelete, "/api/v1/products/1", token, "not-a-token", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with a forged csrf token, got %d", rec.Code)
	}

	csrf := fetchCSRFToken(t, api)
	rec = do(t, handler, http.MethodDelete, "/api/v1/products/1", token, csrf, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with csrf token, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCSRFTokenAcceptsPreviousHour(t *testing.T) {
	api := newTestAPI(t)
	current := api.generateCSRFToken()
	if !api.validateCSRFToken(current) {
		t.Fatalf("expected current token to validate")
	}
	if api.validateCSRFToken("") {
		t.Fatalf("expected empty token to fail")
	}
	if api.validateCSRFToken(api.csrfTokenForHour(0)) {
		t.Fatalf("expected a stale bucket to fail")
	}
}

// fetchCSRFToken calls the CSRF token endpoint and returns the token string.
func fetchCSRFToken(t *testing.T, api *API) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("csrf-token endpoint returned status %d", res.Code)
	}
	var payload map[string]string
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode csrf-token response failed: %v", err)
	}
	tok := payload["csrf_token"]
	if strings.TrimSpace(tok) == "" {
		t.Fatalf("expected non-empty csrf_token in response")
	}
	return tok
}
