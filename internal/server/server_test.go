package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/shinyyama/closet-market/internal/repository"
)

// lateStore only answers the calls New makes while wiring.
type lateStore struct {
	repository.Store
	ready atomic.Bool
}

func (s *lateStore) Notifications() repository.NotificationRepository { return nil }
func (s *lateStore) Stats() repository.UserStatsRepository             { return nil }
func (s *lateStore) SetDB(*gorm.DB)                                    { s.ready.Store(true) }
func (s *lateStore) Ready() bool                                       { return s.ready.Load() }

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_LateDatabase(t *testing.T) {
	t.Parallel()

	store := &lateStore{}
	srv := New(Options{Store: store, SHA: "abc123", MetricsHandler: http.NotFoundHandler()})
	h := srv.Handler()

	rec := get(t, h, "/healthz")
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || health["db_ready"] != "false" || health["git_sha"] != "abc123" {
		t.Errorf("healthz = %d %v", rec.Code, health)
	}
	if rec := get(t, h, "/api/listings"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before SetDB status = %d, want 503", rec.Code)
	}

	srv.SetDB(nil)
	if rec := get(t, h, "/api/orders"); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated orders status = %d, want 401", rec.Code)
	}
	if rec := get(t, h, "/api/listings/1/can-ship"); rec.Code != http.StatusBadRequest {
		t.Errorf("can-ship without province status = %d, want 400", rec.Code)
	}
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics handler not mounted: %d", rec.Code)
	}
}

func TestAllowOrigin(t *testing.T) {
	t.Parallel()

	allow := allowOrigin("vercel.app")
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"https://127.0.0.1:8443", true},
		{"https://closet-market.vercel.app", true},
		{"https://evil.example", false},
		{"ftp://closet-market.vercel.app", false},
		{"://broken", false},
	}
	for _, tt := range tests {
		if got, _ := allow(tt.origin); got != tt.want {
			t.Errorf("allowOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
	if got, _ := allowOrigin("")("https://closet-market.vercel.app"); got {
		t.Error("empty suffix must not allow every host")
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()

	srv := New(Options{Store: &lateStore{}, AllowedOriginSuffix: "vercel.app"})
	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://shop.vercel.app")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.vercel.app" {
		t.Errorf("allow origin = %q", got)
	}
}
