// Package upstream talks to the remote panel API. All endpoints answer the
// { success, data, error, message } envelope over JSON; authentication is a
// bearer token attached by middleware. Cross-cutting behavior (token attach,
// 401 interception) lives in an explicit middleware chain on the client, not
// in global state.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Envelope is the wire shape every panel endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *string         `json:"error,omitempty"`
	Message *string         `json:"message,omitempty"`
}

// APIError is an application-level failure: the endpoint answered but with
// success=false. Transport failures stay ordinary errors.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error (%d): %s", e.Status, e.Code)
}

// Doer executes one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware wraps a Doer.
type Middleware func(next Doer) Doer

// TokenFunc supplies the current bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc for a fixed token.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// Client is the configured panel API client.
type Client struct {
	logger  *slog.Logger
	baseURL string
	doer    Doer
}

func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client, mws ...Middleware) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var doer Doer = httpClient
	// Innermost middleware is listed first, matching handler-chain order.
	for i := len(mws) - 1; i >= 0; i-- {
		doer = mws[i](doer)
	}
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
	}
}

// Get issues a GET and unmarshals the envelope's data into out (out may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err = json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope (%s %s, status %d): %w", method, path, resp.StatusCode, err)
	}

	if !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = *env.Error
		}
		if env.Message != nil {
			apiErr.Message = *env.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err = json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data (%s %s): %w", method, path, err)
		}
	}
	return nil
}
