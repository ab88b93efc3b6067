package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/api/middleware"
	cartsvc "github.com/avidal-labs/brewshop-backend/internal/cart"
	"github.com/avidal-labs/brewshop-backend/internal/erpdocs"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	redisclient "github.com/avidal-labs/brewshop-backend/pkg/redis"
	"github.com/avidal-labs/brewshop-backend/pkg/session"
	"github.com/avidal-labs/brewshop-backend/pkg/types"
)

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

type stubCatalog struct {
	items map[string]*erpdocs.Item
}

func (s *stubCatalog) GetItem(_ context.Context, code string) (*erpdocs.Item, error) {
	item, ok := s.items[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	copied := *item
	return &copied, nil
}

func newCartRouter(t *testing.T) http.Handler {
	t.Helper()
	sessions, err := session.NewStoreWith(&memoryKV{values: map[string]string{}}, time.Hour)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	catalog := &stubCatalog{items: map[string]*erpdocs.Item{
		"hops": {
			Name: "hops", Code: "hops", Title: "Cascade Hops",
			Price: decimal.RequireFromString("6.5"), OrderableQty: 3,
		},
	}}
	svc := cartsvc.NewService(catalog, sessions, nil, config.ERPNextConfig{})

	r := chi.NewRouter()
	r.Use(middleware.Session(config.SessionConfig{CookieName: "sid", TTL: time.Hour}, nil))
	r.Get("/cart", CartGet(svc, nil))
	r.Put("/cart/items", CartSetItem(svc, nil))
	return r
}

func TestCartSetItemAndFetch(t *testing.T) {
	router := newCartRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/cart/items",
		strings.NewReader(`{"item_code":"hops","quantity":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	cookie := sessionCookie(t, rec)

	fetch := httptest.NewRequest(http.MethodGet, "/cart", nil)
	fetch.AddCookie(cookie)
	fetchRec := httptest.NewRecorder()
	router.ServeHTTP(fetchRec, fetch)

	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(fetchRec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["total"] != "13" {
		t.Fatalf("total = %v", data["total"])
	}
}

func TestCartSetItemClampReturnsConflict(t *testing.T) {
	router := newCartRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/cart/items",
		strings.NewReader(`{"item_code":"hops","quantity":10}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("code = %q", envelope.Error.Code)
	}
	details := envelope.Error.Details.(map[string]any)
	if details["available"] != float64(3) {
		t.Fatalf("details = %v", details)
	}

	// The clamped line still landed in the session.
	fetch := httptest.NewRequest(http.MethodGet, "/cart", nil)
	fetch.AddCookie(sessionCookie(t, rec))
	fetchRec := httptest.NewRecorder()
	router.ServeHTTP(fetchRec, fetch)

	var ok types.SuccessEnvelope
	if err := json.Unmarshal(fetchRec.Body.Bytes(), &ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	lines := ok.Data.(map[string]any)["lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("lines = %v", lines)
	}
	if lines[0].(map[string]any)["quantity"] != float64(3) {
		t.Fatalf("quantity = %v", lines[0])
	}
}

func TestCartSetItemRejectsMalformedBody(t *testing.T) {
	router := newCartRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/cart/items",
		strings.NewReader(`{"quantity":1}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "sid" {
			return cookie
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}
