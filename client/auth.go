/**
 * @description
 * Reactive auth state for the client facade.
 * The session lives as a tagged state value (Loading, SignedOut, SignedIn,
 * Failed) rather than three separate nullable fields; every transition is
 * broadcast to WatchAuth subscribers, which is what the guards build on.
 *
 * @dependencies
 * - backend/internal/models
 */

package client

import (
	"context"
	"net/http"

	"github.com/polaris-starter/backend/internal/models"
)

// AuthStatus tags the current phase of the session
type AuthStatus int

const (
	// AuthLoading means the initial session check has not resolved yet
	AuthLoading AuthStatus = iota
	// AuthSignedOut means there is no active session
	AuthSignedOut
	// AuthSignedIn means User identifies the active session
	AuthSignedIn
	// AuthFailed means the session check itself failed; Err carries the cause
	AuthFailed
)

// AuthState is one snapshot of the session
type AuthState struct {
	Status AuthStatus
	User   *models.User
	Err    error
}

// SignedIn reports whether the state carries an authenticated user
func (s AuthState) SignedIn() bool {
	return s.Status == AuthSignedIn
}

// SendMagicCode asks the backend to email a one-time sign-in code
func (c *Client) SendMagicCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/send-code", body, nil)
}

// SignInWithMagicCode redeems a code for a session and resolves the auth
// state to SignedIn
func (c *Client) SignInWithMagicCode(ctx context.Context, email, code string) (*models.User, error) {
	body := map[string]string{"email": email, "code": code}
	var resp struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/verify-code", body, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()

	c.setAuthState(AuthState{Status: AuthSignedIn, User: resp.User})
	return resp.User, nil
}

// SignOut revokes the session and resolves the auth state to SignedOut.
// Local state is cleared even when the revocation call fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/sign-out", nil, nil)

	c.mu.Lock()
	c.token = ""
	c.profile = nil
	c.mu.Unlock()

	c.setAuthState(AuthState{Status: AuthSignedOut})
	return err
}

// GetAuth resolves and returns the current auth state with one session check.
// It is the one-shot, non-reactive counterpart of WatchAuth.
func (c *Client) GetAuth(ctx context.Context) AuthState {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		state := AuthState{Status: AuthSignedOut}
		c.setAuthState(state)
		return state
	}

	var user models.User
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/me", nil, &user)
	var state AuthState
	switch {
	case err == nil:
		state = AuthState{Status: AuthSignedIn, User: &user}
	case isUnauthorized(err):
		// The stored token is stale; drop it
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		state = AuthState{Status: AuthSignedOut}
	default:
		state = AuthState{Status: AuthFailed, Err: err}
	}

	c.setAuthState(state)
	return state
}

// Token returns the raw session token for persistence across restarts
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// WatchAuth subscribes to auth state transitions. The current state is
// delivered immediately; the returned function unsubscribes.
func (c *Client) WatchAuth() (<-chan AuthState, func()) {
	ch := make(chan AuthState, 16)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	// Replay under the lock so no concurrent broadcast can slip into the
	// buffer ahead of the current state. The fresh buffer makes this send
	// non-blocking.
	ch <- c.authState
	c.mu.Unlock()

	unsubscribe := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}

	return ch, unsubscribe
}

// setAuthState records a state snapshot and notifies subscribers
func (c *Client) setAuthState(state AuthState) {
	c.mu.Lock()
	c.authState = state
	for sub := range c.subscribers {
		select {
		case sub <- state:
		default:
			// Subscriber is too slow; it will observe the next transition
		}
	}
	c.mu.Unlock()
}

func isUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}
