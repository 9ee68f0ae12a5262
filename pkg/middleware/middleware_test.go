package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stayledger/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

func TestRequestLoggingStampsRequestID(t *testing.T) {
	var captured string
	handler := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil))

	if captured == "" {
		t.Error("expected a request id in the handler context")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"get passes without content type", http.MethodGet, "", "", http.StatusOK},
		{"post with json passes", http.MethodPost, "application/json", `{}`, http.StatusOK},
		{"post with charset passes", http.MethodPost, "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"post with xml rejected", http.MethodPost, "application/xml", `<x/>`, http.StatusUnsupportedMediaType},
		{"post without body passes", http.MethodPost, "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/api/v1/bookings", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAccountRateLimit(t *testing.T) {
	limiter := NewAccountRateLimiter(2, time.Minute, nil, testLogger())
	defer limiter.Stop()

	handler := AccountRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(account string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		if account != "" {
			req.Header.Set("X-Account-ID", account)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("alice"); code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
	if code := do("alice"); code != http.StatusOK {
		t.Errorf("second request: expected 200, got %d", code)
	}
	if code := do("alice"); code != http.StatusTooManyRequests {
		t.Errorf("third request: expected 429, got %d", code)
	}

	// A different account has its own window.
	if code := do("bob"); code != http.StatusOK {
		t.Errorf("other account: expected 200, got %d", code)
	}

	// Anonymous requests are not limited.
	for i := 0; i < 5; i++ {
		if code := do(""); code != http.StatusOK {
			t.Errorf("anonymous request %d: expected 200, got %d", i, code)
		}
	}
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	store := NewLocalIdempotencyStore(time.Minute, 100)
	defer store.Stop()

	hits := 0
	handler := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":0}`))
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do("key-1")
	if first.Code != http.StatusCreated || hits != 1 {
		t.Fatalf("first request: status %d, hits %d", first.Code, hits)
	}

	second := do("key-1")
	if second.Code != http.StatusCreated {
		t.Errorf("replay: expected 201, got %d", second.Code)
	}
	if hits != 1 {
		t.Errorf("replay should not reach the handler, hits = %d", hits)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("replay body %q differs from original %q", second.Body.String(), first.Body.String())
	}

	// A different key reaches the handler.
	do("key-2")
	if hits != 2 {
		t.Errorf("expected second handler hit, got %d", hits)
	}

	// No key: never cached.
	do("")
	do("")
	if hits != 4 {
		t.Errorf("uncached requests should always reach the handler, hits = %d", hits)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	store := NewLocalIdempotencyStore(time.Minute, 100)
	defer store.Stop()

	hits := 0
	handler := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusConflict)
	}))

	req := func() {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		r.Header.Set("Idempotency-Key", "key-1")
		handler.ServeHTTP(httptest.NewRecorder(), r)
	}

	req()
	req()

	if hits != 2 {
		t.Errorf("failed responses must not be replayed, hits = %d", hits)
	}
}

func TestSignatureVerification(t *testing.T) {
	secret := "test-secret"
	handler := SignatureVerification(secret, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The body must still be readable after verification.
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 && r.Method == http.MethodPost {
			t.Error("body was consumed by the middleware")
		}
		w.WriteHeader(http.StatusOK)
	}))

	sign := func(body string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(body))
		return "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}

	t.Run("valid signature passes", func(t *testing.T) {
		body := `{"property_id":0}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
		req.Header.Set("X-Hub-Signature-256", sign(body))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("reads pass unsigned", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/properties", nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestRequestTimeout(t *testing.T) {
	handler := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	rec := httptest.NewRecorder()
	start := time.Now()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout took too long: %s", elapsed)
	}
}
