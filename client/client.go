/**
 * @description
 * Platform-neutral client facade for the Polaris backend.
 * One Client instance wraps the HTTP API, the session, and the reactive
 * subscription streams behind a single surface, so application code never
 * touches transport details. Instances are constructed explicitly and passed
 * to consumers; there is no package-level singleton.
 *
 * @dependencies
 * - standard net/http
 * - backend/internal/models: shared row types
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/polaris-starter/backend/internal/models"
)

// Config configures a Client
type Config struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8080"
	BaseURL string
	// AppID identifies the application to the backend
	AppID string
	// Token seeds the session from a previously stored token, if any
	Token string
	// BypassAuth short-circuits every auth guard for local development
	// without a backend. It must mirror the server's AUTH_BYPASS switch.
	BypassAuth bool
	// HTTPClient overrides the transport; defaults to a 30s-timeout client
	HTTPClient *http.Client
}

// Client is the facade instance shared by all screens of one process
type Client struct {
	baseURL string
	appID   string
	bypass  bool
	http    *http.Client
	// streamHTTP carries no timeout: SSE subscriptions are long-lived
	streamHTTP *http.Client

	mu          sync.RWMutex
	token       string
	authState   AuthState
	profile     *models.UserProfile
	subscribers map[chan AuthState]struct{}
}

// New constructs a Client. The auth state starts as Loading until the first
// GetAuth (or sign-in) resolves it.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		appID:       cfg.AppID,
		bypass:      cfg.BypassAuth,
		http:        httpClient,
		streamHTTP:  &http.Client{Transport: httpClient.Transport},
		token:       cfg.Token,
		authState:   AuthState{Status: AuthLoading},
		subscribers: make(map[chan AuthState]struct{}),
	}
}

// APIError is a non-2xx backend response with its message passed through
// unchanged.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// doJSON performs one request and decodes the JSON response into out.
// The stored session token rides along when present.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// hasSession reports whether requests would carry a subject: a stored token,
// or the bypass switch standing in for one.
func (c *Client) hasSession() bool {
	if c.bypass {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) authorize(req *http.Request) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.appID != "" {
		req.Header.Set("X-App-ID", c.appID)
	}
}

// errorMessage pulls the backend's {"error": ...} body, falling back to the
// raw payload
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
