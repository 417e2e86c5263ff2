/**
 * @description
 * Profile surface of the client facade.
 * WatchProfile mirrors the original profile hook: a live view of the
 * signed-in user's profile (with linked user and avatar), plus a bootstrap
 * call whenever the stream shows a signed-in user without a profile row.
 * The bootstrap endpoint is idempotent server-side, so overlapping watchers
 * racing each other is harmless.
 *
 * @dependencies
 * - backend/internal/models
 */

package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/polaris-starter/backend/internal/models"
)

// ProfileSnapshot is one live result of the profile query. Data is nil while
// no profile row exists (or while signed out).
type ProfileSnapshot = Snapshot[*models.UserProfile]

// WatchProfile subscribes to the signed-in user's profile. Empty snapshots
// trigger the idempotent server-side bootstrap; the created row then arrives
// through the same stream.
func (c *Client) WatchProfile(ctx context.Context) (<-chan ProfileSnapshot, func()) {
	snapshots, stop := watchQuery[*models.UserProfile](ctx, c, "profile")

	out := make(chan ProfileSnapshot, 16)
	go func() {
		defer close(out)
		ensuring := false

		for snapshot := range snapshots {
			if snapshot.Data != nil {
				c.rememberProfile(snapshot.Data)
				ensuring = false
			} else if !snapshot.Loading && snapshot.Err == nil && !ensuring && c.hasSession() {
				// Signed-in user with no profile row yet: bootstrap once per
				// empty observation window. Signed out, an empty snapshot
				// just means "no subject" and triggers nothing.
				ensuring = true
				if _, err := c.EnsureProfile(ctx); err != nil {
					ensuring = false
				}
			}
			emit(ctx, out, snapshot)
		}
	}()

	return out, stop
}

// GetProfile fetches the profile once, without subscribing
func (c *Client) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	var resp struct {
		Profile *models.UserProfile `json:"profile"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/profile", nil, &resp); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	c.rememberProfile(resp.Profile)
	return resp.Profile, nil
}

// EnsureProfile bootstraps the profile row; calling it when the row already
// exists returns the existing row
func (c *Client) EnsureProfile(ctx context.Context) (*models.UserProfile, error) {
	var resp struct {
		Profile *models.UserProfile `json:"profile"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/profile/ensure", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Profile == nil {
		// The bootstrap contract is "a row always comes back"
		return nil, errors.New("profile bootstrap returned no profile")
	}
	c.rememberProfile(resp.Profile)
	return resp.Profile, nil
}

// UpdateProfile writes both name fields in one transaction; an empty field
// unsets the stored value. A call before any profile has resolved is a no-op,
// mirroring the original facade contract.
func (c *Client) UpdateProfile(ctx context.Context, firstName, lastName string) (*models.UserProfile, error) {
	c.mu.RLock()
	known := c.profile
	c.mu.RUnlock()
	if known == nil {
		return nil, nil
	}

	body := map[string]string{"first_name": firstName, "last_name": lastName}
	var resp struct {
		Profile *models.UserProfile `json:"profile"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/profile", body, &resp); err != nil {
		return nil, err
	}
	c.rememberProfile(resp.Profile)
	return resp.Profile, nil
}

func (c *Client) rememberProfile(profile *models.UserProfile) {
	if profile == nil {
		return
	}
	c.mu.Lock()
	c.profile = profile
	c.mu.Unlock()
}
