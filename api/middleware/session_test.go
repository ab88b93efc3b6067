package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	identitysvc "github.com/avidal-labs/brewshop-backend/internal/identity"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	redisclient "github.com/avidal-labs/brewshop-backend/pkg/redis"
	"github.com/avidal-labs/brewshop-backend/pkg/session"
)

func TestSessionAssignsCookieToNewVisitor(t *testing.T) {
	var seen string
	handler := Session(config.SessionConfig{CookieName: "sid", TTL: time.Hour}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatalf("no session id in context")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != seen {
		t.Fatalf("cookie = %v, context sid = %q", cookies, seen)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}
}

func TestSessionReusesExistingCookie(t *testing.T) {
	var seen string
	handler := Session(config.SessionConfig{CookieName: "sid", TTL: time.Hour}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "existing"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "existing" {
		t.Fatalf("sid = %q, want existing", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("cookie was reissued")
	}
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memoryKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redisclient.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestAuthenticatedRejectsAnonymousSession(t *testing.T) {
	sessions, err := session.NewStoreWith(&memoryKV{values: map[string]string{}}, time.Hour)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	ids := identitysvc.NewService(nil, nil, sessions, nil)

	handler := Session(config.SessionConfig{CookieName: "sid", TTL: time.Hour}, nil)(
		Authenticated(ids, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("handler reached without identity")
		})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
