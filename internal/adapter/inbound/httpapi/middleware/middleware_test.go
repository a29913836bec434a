package middleware

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medme/secwatch/internal/domain/model"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHMACAuth(t *testing.T) {
	const secret = "s3cret"
	body := `{"type":"login.failed","userId":"u1"}`
	h := BodyReader(0)(HMACAuth(secret)(okHandler))

	tests := []struct {
		name string
		sig  string
		want int
	}{
		{"valid", "sha256=" + hex.EncodeToString(Sign(secret, []byte(body))), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong prefix", "sha1=abc", http.StatusUnauthorized},
		{"bad hex", "sha256=zz", http.StatusUnauthorized},
		{"wrong secret", "sha256=" + hex.EncodeToString(Sign("other", []byte(body))), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(body))
			if tt.sig != "" {
				req.Header.Set(SignatureHeader, tt.sig)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestBodyReader_TooLarge(t *testing.T) {
	h := BodyReader(8)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestIdentifyAndRequireCapability(t *testing.T) {
	verifier := NewTokenVerifier("jwt-secret", "medme", "")
	adminToken, err := verifier.Issue("admin-1", model.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	doctorToken, _ := verifier.Issue("doc-1", model.RoleDoctor, time.Hour)
	expired, _ := verifier.Issue("admin-1", model.RoleAdmin, -time.Hour)
	foreign, _ := NewTokenVerifier("other-secret", "medme", "").Issue("admin-1", model.RoleAdmin, time.Hour)

	var seen model.Actor
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFrom(r.Context())
	})
	h := Identify(verifier, false)(RequireCapability(model.CapSecurityManage)(capture))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"admin", "Bearer " + adminToken, http.StatusOK},
		{"doctor lacks capability", "Bearer " + doctorToken, http.StatusForbidden},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/security/alerts", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("expected request id header")
			}
		})
	}

	if seen.ID != "admin-1" || seen.Role != model.RoleAdmin || seen.IP != "203.0.113.9" || seen.RequestID == "" {
		t.Errorf("unexpected actor: %+v", seen)
	}
}

func TestIdentify_KeepsValidRequestID(t *testing.T) {
	h := Identify(nil, false)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("request id = %q, want req-123", got)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRateLimiter(ctx, 60, 2, false)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/security/alerts", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	other := httptest.NewRequest(http.MethodPost, "/api/security/alerts", nil)
	other.RemoteAddr = "198.51.100.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other ip status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter_EvictStale(t *testing.T) {
	rl := newRateLimiter(60, 1, false)
	rl.allow("a")
	rl.visitors["a"].lastSeen = time.Now().Add(-time.Hour)
	rl.allow("b")
	rl.evictStale(10 * time.Minute)
	if _, ok := rl.visitors["a"]; ok {
		t.Error("stale visitor not evicted")
	}
	if _, ok := rl.visitors["b"]; !ok {
		t.Error("fresh visitor evicted")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req, false); got != "10.0.0.1" {
		t.Errorf("untrusted = %q", got)
	}
	if got := ClientIP(req, true); got != "203.0.113.7" {
		t.Errorf("trusted = %q", got)
	}
}
