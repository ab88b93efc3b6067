// Package erpnext implements the resource gateway to the remote ERP. It owns
// the authenticated session, renews it transparently when the validity
// watermark lapses, and maps resource-level HTTP outcomes onto the shared
// error taxonomy.
package erpnext

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avidal-labs/brewshop-backend/pkg/config"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// The ERP session cookie is assumed valid for one hour after login.
const sessionValidity = time.Hour

const maxErrorBody = 2048

// RawDocument is an untyped resource payload as returned by the ERP.
type RawDocument map[string]any

// Client talks to the ERP resource API. Session state is shared across all
// callers in the process; re-login is serialized through a singleflight group
// so concurrent requests racing an expired watermark trigger a single login.
type Client struct {
	apiRoot    string
	username   string
	password   string
	httpClient *http.Client
	logger     *logger.Logger

	mu        sync.Mutex
	expiresAt time.Time

	loginGroup singleflight.Group
}

// NewClient builds the gateway; it does not log in. Callers log in once at
// bootstrap so a bad credential fails fast, after that renewal is automatic.
func NewClient(cfg config.ERPNextConfig, logg *logger.Logger) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, fmt.Errorf("erpnext host is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || cfg.Password == "" {
		return nil, fmt.Errorf("erpnext credentials are required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	apiRoot := fmt.Sprintf("https://%s/api/", host)
	if strings.Contains(host, "://") {
		apiRoot = strings.TrimRight(host, "/") + "/api/"
	}
	return &Client{
		apiRoot:  apiRoot,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger: logg,
	}, nil
}

// Login establishes a fresh ERP session and advances the validity watermark.
// It never routes through ensureSession, so session renewal cannot recurse.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("usr", c.username)
	form.Set("pwd", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiRoot+"method/login", strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erp login call failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readLimited(resp.Body)
		if c.logger != nil {
			c.logger.Error(ctx, "erp login rejected", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "erp login rejected").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	c.mu.Lock()
	c.expiresAt = time.Now().Add(sessionValidity)
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info(ctx, "erp session established")
	}
	return nil
}

func (c *Client) sessionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.expiresAt)
}

// ensureSession re-logs-in when the watermark has lapsed. Concurrent callers
// share one in-flight login and wait on its result.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.sessionValid() {
		return nil
	}
	_, err, _ := c.loginGroup.Do("login", func() (any, error) {
		if c.sessionValid() {
			return nil, nil
		}
		return nil, c.Login(ctx)
	})
	return err
}

// GetResource fetches a single named document with an optional field
// projection and filter set. A 404 maps to CodeNotFound.
func (c *Client) GetResource(ctx context.Context, doctype, name string, fields []string, filters []Filter) (RawDocument, error) {
	query := url.Values{}
	if err := encodeProjection(query, fields, filters, 0); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))

	var doc RawDocument
	if err := c.getJSON(ctx, path, query, &doc); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %q not found", doctype, name))
		}
		return nil, err
	}
	return doc, nil
}

// ListResource returns every document matching the filters, up to pageLength
// when positive. No matches is an empty slice, not an error; filtering always
// happens server-side.
func (c *Client) ListResource(ctx context.Context, doctype string, fields []string, filters []Filter, pageLength int) ([]RawDocument, error) {
	query := url.Values{}
	if err := encodeProjection(query, fields, filters, pageLength); err != nil {
		return nil, err
	}
	path := "resource/" + url.PathEscape(doctype)

	var docs []RawDocument
	if err := c.getJSON(ctx, path, query, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []RawDocument{}
	}
	return docs, nil
}

// FirstResource returns the first match or CodeNotFound when nothing matches.
func (c *Client) FirstResource(ctx context.Context, doctype string, fields []string, filters []Filter) (RawDocument, error) {
	docs, err := c.ListResource(ctx, doctype, fields, filters, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %s matching filters", doctype))
	}
	return docs[0], nil
}

// CreateResource inserts a document and returns the server-side result,
// including the assigned name.
func (c *Client) CreateResource(ctx context.Context, doctype string, data map[string]any) (RawDocument, error) {
	var doc RawDocument
	path := "resource/" + url.PathEscape(doctype)
	if err := c.sendJSON(ctx, http.MethodPost, path, data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateResource applies a partial update to a named document.
func (c *Client) UpdateResource(ctx context.Context, doctype, name string, data map[string]any) (RawDocument, error) {
	var doc RawDocument
	path := fmt.Sprintf("resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	if err := c.sendJSON(ctx, http.MethodPut, path, data, &doc); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %q not found", doctype, name))
		}
		return nil, err
	}
	return doc, nil
}

// DeleteResource removes a named document.
func (c *Client) DeleteResource(ctx context.Context, doctype, name string) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	path := fmt.Sprintf("resource/%s/%s", url.PathEscape(doctype), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiRoot+path, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building erp request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erp call failed")
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, readLimited(resp.Body))
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	endpoint := c.apiRoot + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building erp request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erp call failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, readLimited(resp.Body))
	}
	return decodeEnvelope(resp.Body, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, data map[string]any, dest any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding erp payload")
	}
	form := url.Values{}
	form.Set("data", string(payload))

	req, err := http.NewRequestWithContext(ctx, method, c.apiRoot+path, strings.NewReader(form.Encode()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building erp request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "erp call failed")
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, readLimited(resp.Body))
	}
	return decodeEnvelope(resp.Body, dest)
}

func encodeProjection(query url.Values, fields []string, filters []Filter, pageLength int) error {
	if len(fields) > 0 {
		encoded, err := json.Marshal(fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding field projection")
		}
		query.Set("fields", string(encoded))
	}
	if len(filters) > 0 {
		encoded, err := json.Marshal(filters)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encoding filters")
		}
		query.Set("filters", string(encoded))
	}
	if pageLength > 0 {
		query.Set("limit_page_length", strconv.Itoa(pageLength))
	}
	return nil
}

func decodeEnvelope(body io.Reader, dest any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding erp response")
	}
	if dest == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding erp payload")
	}
	return nil
}

func statusError(status int, body string) error {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "erp document not found")
	case http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "erp session rejected")
	case http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeForbidden, "erp permission denied")
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("erp returned status %d", status)).
			WithDetails(map[string]any{"status": status, "body": body})
	}
}

func readLimited(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(raw))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
