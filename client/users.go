package client

import (
	"context"
	"net/http"

	"github.com/polaris-starter/backend/internal/models"
)

// WatchUsers subscribes to the full user collection
func (c *Client) WatchUsers(ctx context.Context) (<-chan Snapshot[[]models.User], func()) {
	return watchQuery[[]models.User](ctx, c, "users")
}

// ListUsers fetches the user collection once, without subscribing
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}
