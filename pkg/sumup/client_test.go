package sumup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.SumUpConfig{
		BaseURL:       server.URL,
		TokenURL:      server.URL + "/token",
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		MerchantEmail: "merchant@example.com",
		Currency:      "EUR",
		Timeout:       5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func serveToken(w http.ResponseWriter) {
	fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
}

func TestCreateCheckoutSendsGatewayPayload(t *testing.T) {
	var gotPayload map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			serveToken(w)
		case "/checkouts":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				t.Errorf("missing bearer token")
			}
			if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
				t.Errorf("decoding payload: %v", err)
			}
			fmt.Fprint(w, `{"id":"chk-1","status":"PENDING","amount":16,"checkout_reference":"SO-001"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	checkout, err := client.CreateCheckout(context.Background(), CheckoutParams{
		Amount:      decimal.RequireFromString("16"),
		Reference:   "SO-001",
		Description: "Web order SO-001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkout.ID != "chk-1" || checkout.Status != StatusPending {
		t.Fatalf("unexpected checkout %+v", checkout)
	}
	if gotPayload["checkout_reference"] != "SO-001" || gotPayload["pay_to_email"] != "merchant@example.com" {
		t.Fatalf("unexpected payload %v", gotPayload)
	}
	if gotPayload["amount"] != float64(16) {
		t.Fatalf("amount must be a JSON number, got %v", gotPayload["amount"])
	}
}

func TestCreateCheckoutConflictMapsToConflictCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			serveToken(w)
			return
		}
		http.Error(w, "duplicate reference", http.StatusConflict)
	}))

	_, err := client.CreateCheckout(context.Background(), CheckoutParams{
		Amount:    decimal.RequireFromString("10"),
		Reference: "SO-001",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetCheckoutByReferenceEmptyIsNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			serveToken(w)
			return
		}
		if got := r.URL.Query().Get("checkout_reference"); got != "SO-404" {
			t.Errorf("unexpected reference %q", got)
		}
		fmt.Fprint(w, `[]`)
	}))

	_, err := client.GetCheckoutByReference(context.Background(), "SO-404")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetCheckoutByReferenceReturnsFirstMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			serveToken(w)
			return
		}
		fmt.Fprint(w, `[{"id":"chk-1","status":"PAID","amount":16.5,"checkout_reference":"SO-001","transaction_code":"TX-9"}]`)
	}))

	checkout, err := client.GetCheckoutByReference(context.Background(), "SO-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkout.Status != StatusPaid || checkout.TransactionCode != "TX-9" {
		t.Fatalf("unexpected checkout %+v", checkout)
	}
	if !checkout.Amount.Equal(decimal.RequireFromString("16.5")) {
		t.Fatalf("unexpected amount %s", checkout.Amount)
	}
}

func TestTokenFetchedOnceWhileValid(t *testing.T) {
	var tokenCalls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			tokenCalls.Add(1)
			serveToken(w)
			return
		}
		fmt.Fprint(w, `{"id":"chk-1","status":"PENDING","amount":1,"checkout_reference":"R"}`)
	}))

	for i := 0; i < 3; i++ {
		if _, err := client.GetCheckout(context.Background(), "chk-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Fatalf("expected one token fetch, got %d", got)
	}
}

func TestRejectedCredentialsMapUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusUnauthorized)
	}))

	_, err := client.GetCheckout(context.Background(), "chk-1")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
