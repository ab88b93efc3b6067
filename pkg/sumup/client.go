// Package sumup is the hosted-checkout payment gateway client. It owns the
// OAuth client-credentials token and the checkout lifecycle: create, fetch by
// id or reference, delete. Duplicate-reference conflicts surface as
// CodeConflict for the checkout orchestrator to absorb.
package sumup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusFailed  = "FAILED"
)

// tokenSlack renews the bearer token slightly before the gateway expires it.
const tokenSlack = 30 * time.Second

// Checkout is the gateway-side transaction record. It is never cached beyond
// the current request.
type Checkout struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reference       string          `json:"checkout_reference"`
	Description     string          `json:"description"`
	TransactionCode string          `json:"transaction_code"`
}

// CheckoutParams describes a checkout to create.
type CheckoutParams struct {
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// Client talks to the gateway REST API with a lazily fetched bearer token.
type Client struct {
	baseURL       string
	tokenURL      string
	clientID      string
	clientSecret  string
	merchantEmail string
	currency      string
	httpClient    *http.Client
	logger        *logger.Logger

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

// NewClient validates the gateway configuration and builds the client.
func NewClient(cfg config.SumUpConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("sumup client credentials are required")
	}
	if strings.TrimSpace(cfg.MerchantEmail) == "" {
		return nil, fmt.Errorf("sumup merchant email is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		tokenURL:      cfg.TokenURL,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		merchantEmail: cfg.MerchantEmail,
		currency:      cfg.Currency,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logg,
	}, nil
}

// CreateCheckout registers a new checkout keyed by the idempotency reference.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error) {
	payload := map[string]any{
		"amount":             params.Amount.InexactFloat64(),
		"currency":           c.currency,
		"pay_to_email":       c.merchantEmail,
		"checkout_reference": params.Reference,
		"description":        params.Description,
	}

	var checkout Checkout
	if err := c.doJSON(ctx, http.MethodPost, "/checkouts", nil, payload, &checkout); err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Info(c.logger.WithFields(ctx, map[string]any{
			"checkout_id": checkout.ID,
			"reference":   checkout.Reference,
		}), "gateway checkout created")
	}
	return &checkout, nil
}

// GetCheckout fetches a checkout by its gateway id.
func (c *Client) GetCheckout(ctx context.Context, checkoutID string) (*Checkout, error) {
	var checkout Checkout
	path := "/checkouts/" + url.PathEscape(checkoutID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// GetCheckoutByReference fetches the checkout registered under the given
// idempotency reference. An empty match set maps to CodeNotFound.
func (c *Client) GetCheckoutByReference(ctx context.Context, reference string) (*Checkout, error) {
	query := url.Values{}
	query.Set("checkout_reference", reference)

	var checkouts []Checkout
	if err := c.doJSON(ctx, http.MethodGet, "/checkouts", query, nil, &checkouts); err != nil {
		return nil, err
	}
	if len(checkouts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no checkout with reference %q", reference))
	}
	return &checkouts[0], nil
}

// DeleteCheckout removes a pending checkout.
func (c *Client) DeleteCheckout(ctx context.Context, checkoutID string) error {
	path := "/checkouts/" + url.PathEscape(checkoutID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway token call failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway rejected client credentials").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway token")
	}
	if token.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway returned empty token")
	}

	c.token = token.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, dest any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding gateway payload")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Includes timeouts: the outcome is unknown, treat as retryable and
		// never as a definitive gateway rejection.
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway call failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, readLimited(resp.Body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}

func statusError(status int, body string) error {
	switch status {
	case http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, "checkout reference already in use")
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "gateway rejected credentials")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %d", status)).
			WithDetails(map[string]any{"status": status, "body": body})
	}
}

func readLimited(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(raw))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
