package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/excuse-deck/internal/request"
	"github.com/benvon/excuse-deck/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		path       string
		wantStatus int64
	}{
		{"ok", http.StatusOK, "/api/v1/deck", 200},
		{"conflict", http.StatusConflict, "/api/v1/deck/swipe", 409},
		{"control chars stripped", http.StatusNotFound, "/api/v1/\x07deck", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			h := Logging(zap.New(core))(statusHandler(tt.status))

			req := httptest.NewRequest("GET", "/", nil)
			req.URL.Path = tt.path
			h.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected one http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != tt.wantStatus {
				t.Errorf("Expected status_code %d, got %v", tt.wantStatus, fields["status_code"])
			}
			if p, _ := fields["path"].(string); strings.ContainsRune(p, '\x07') {
				t.Errorf("Expected sanitized path, got %q", p)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  int
		message string
	}{
		{http.StatusUnauthorized, "security_event"},
		{http.StatusConflict, "deck_conflict"},
		{http.StatusTooManyRequests, "rate_limit_violation"},
		{http.StatusOK, ""},
	}

	for _, tt := range tests {
		core, logs := observer.New(zap.InfoLevel)
		req := httptest.NewRequest("POST", "/api/v1/deck/swipe", nil)
		req = req.WithContext(request.WithSessionID(req.Context(), "sess"))
		Audit(zap.New(core))(statusHandler(tt.status)).ServeHTTP(httptest.NewRecorder(), req)

		if tt.message == "" {
			if logs.Len() != 0 {
				t.Errorf("status %d: expected no audit entry, got %d", tt.status, logs.Len())
			}
			continue
		}
		if logs.FilterMessage(tt.message).Len() != 1 {
			t.Errorf("status %d: expected %s entry", tt.status, tt.message)
		}
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json post", "POST", `{"direction":"left"}`, "application/json; charset=utf-8", http.StatusOK},
		{"bodiless post", "POST", "", "", http.StatusOK},
		{"missing header", "POST", `{}`, "", http.StatusBadRequest},
		{"form post", "POST", `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"get ignored", "GET", "", "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body io.Reader = http.NoBody
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/api/v1/deck/swipe", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ContentType(okHandler).ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name      string
		req       func() *http.Request
		want      int
		wantError string
	}{
		{
			name: "declared length over the limit",
			req: func() *http.Request {
				return httptest.NewRequest("POST", "/api/v1/deck/drag", bytes.NewReader(make([]byte, 64)))
			},
			want:      http.StatusRequestEntityTooLarge,
			wantError: "request_too_large",
		},
		{
			name: "unknown length cut off while reading",
			req: func() *http.Request {
				req := httptest.NewRequest("POST", "/api/v1/deck/drag", io.NopCloser(bytes.NewReader(make([]byte, 64))))
				req.ContentLength = -1
				return req
			},
			want: http.StatusBadRequest,
		},
		{
			name: "small body",
			req: func() *http.Request {
				return httptest.NewRequest("POST", "/api/v1/deck/swipe", strings.NewReader("{}"))
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			h.ServeHTTP(w, tt.req())
			if w.Code != tt.want {
				t.Fatalf("Expected %d, got %d", tt.want, w.Code)
			}
			if tt.wantError == "" {
				return
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, body.Error)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hsts      bool
		forwarded string
		wantHSTS  bool
	}{
		{name: "plain http", hsts: true},
		{name: "https behind a proxy", hsts: true, forwarded: "https", wantHSTS: true},
		{name: "hsts disabled", hsts: false, forwarded: "https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/api/v1/deck", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			w := httptest.NewRecorder()
			SecurityHeaders(tt.hsts)(okHandler).ServeHTTP(w, req)

			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("Expected nosniff, got %q", got)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Expected deck responses to be uncacheable, got %q", got)
			}
			if got := w.Header().Get("Strict-Transport-Security"); (got != "") != tt.wantHSTS {
				t.Errorf("Strict-Transport-Security = %q, want set=%v", got, tt.wantHSTS)
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("slow excuse wait", func(t *testing.T) {
		t.Parallel()

		h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/deck/swipe", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if body.Error != "request_timeout" {
			t.Errorf("Expected request_timeout, got %q", body.Error)
		}
	})

	t.Run("fast handler keeps its headers", func(t *testing.T) {
		t.Parallel()

		h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); !ok {
				t.Error("Expected a request deadline")
			}
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusTeapot)
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/version", nil))

		if w.Code != http.StatusTeapot || w.Header().Get("Content-Type") != "text/plain" {
			t.Errorf("Unexpected response %d %q", w.Code, w.Header().Get("Content-Type"))
		}
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := CORS([]string{"http://localhost:3000/", " "}, zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/deck/swipe", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin echoed, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/deck", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no CORS headers for unknown origin, got %q", got)
	}
}

func TestSessions(t *testing.T) {
	t.Parallel()

	signer := session.NewSigner([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	var seen string
	h := Sessions(signer, true, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.SessionID(r)
	}))

	// first visit starts a session
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/deck", nil))
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.CookieName {
		t.Fatalf("Expected a %s cookie, got %v", session.CookieName, cookies)
	}
	c := cookies[0]
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("Unexpected cookie attributes %+v", c)
	}
	first := seen
	if first == "" {
		t.Fatal("Expected a session id in the context")
	}

	// the cookie brings the same session back without reissuing
	req := httptest.NewRequest("GET", "/api/v1/deck", nil)
	req.AddCookie(c)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != first {
		t.Errorf("Expected session %q, got %q", first, seen)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("Expected no new cookie for a valid session")
	}

	// a tampered cookie starts over
	req = httptest.NewRequest("GET", "/api/v1/deck", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: c.Value + "x"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen == first || len(w.Result().Cookies()) != 1 {
		t.Error("Expected a new session for a tampered cookie")
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	store := NewRateLimitStore(context.Background(), nil, zap.NewNop())
	mw, err := RateLimit(store, "2-M")
	if err != nil {
		t.Fatalf("RateLimit() error = %v", err)
	}
	h := mw(okHandler)

	send := func(id string) int {
		req := httptest.NewRequest("POST", "/api/v1/excuses", nil)
		req = req.WithContext(request.WithSessionID(req.Context(), id))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("a"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("a"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the limit, got %d", code)
	}
	if code := send("b"); code != http.StatusOK {
		t.Errorf("Expected other sessions unaffected, got %d", code)
	}

	if _, err := RateLimit(store, "lots"); err == nil {
		t.Error("Expected error for a malformed rate")
	}
}
