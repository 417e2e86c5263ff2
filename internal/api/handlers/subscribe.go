/**
 * @description
 * Reactive query subscription handler.
 * Streams named-query snapshots over SSE: one snapshot on connect, then one
 * per relevant change event from the hub. Snapshots are whole results, never
 * deltas, so a slow consumer only ever sees a fresher state, not a gap.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/polaris-starter/backend/internal/api/middleware"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/services"
)

// Named queries the facade can subscribe to
const (
	QueryUsers   = "users"
	QueryProfile = "profile"
)

// SubscribeHandler streams live query snapshots
type SubscribeHandler struct {
	hub            *services.ChangeHub
	userService    *services.UserService
	profileService *services.ProfileService
}

// NewSubscribeHandler creates a new SubscribeHandler
func NewSubscribeHandler(hub *services.ChangeHub, userService *services.UserService, profileService *services.ProfileService) *SubscribeHandler {
	return &SubscribeHandler{
		hub:            hub,
		userService:    userService,
		profileService: profileService,
	}
}

// snapshotEnvelope frames one SSE payload
type snapshotEnvelope struct {
	Query string      `json:"query"`
	Data  interface{} `json:"data"`
}

// Stream serves a named query over SSE
// GET /api/v1/subscribe?query=users|profile
func (h *SubscribeHandler) Stream(c *fiber.Ctx) error {
	query := c.Query("query")
	if query != QueryUsers && query != QueryProfile {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown query: " + query})
	}

	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestCtx := c.Context()
	events, unsubscribe := h.hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		// Snapshot recomputation outlives the fasthttp request context
		ctx := context.Background()

		if err := h.writeSnapshot(ctx, w, query, userID); err != nil {
			return
		}

		requestDone := requestCtx.Done()

		for {
			select {
			case <-requestDone:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if !relevant(query, userID, event) {
					continue
				}
				if err := h.writeSnapshot(ctx, w, query, userID); err != nil {
					return
				}
			}
		}
	})

	return nil
}

func (h *SubscribeHandler) writeSnapshot(ctx context.Context, w *bufio.Writer, query string, userID uuid.UUID) error {
	data, err := h.evaluate(ctx, query, userID)
	if err != nil {
		logger.Error("Subscribe: failed to evaluate %s: %v", query, err)
		return err
	}

	payload, err := json.Marshal(snapshotEnvelope{Query: query, Data: data})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "data: %s\n\n", payload)
	return w.Flush()
}

func (h *SubscribeHandler) evaluate(ctx context.Context, query string, userID uuid.UUID) (interface{}, error) {
	switch query {
	case QueryUsers:
		return h.userService.ListUsers(ctx)
	case QueryProfile:
		profile, err := h.profileService.Get(ctx, userID)
		if err == services.ErrNoProfile {
			// "No profile yet" is a valid snapshot, not a failure
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return profile, nil
	default:
		return nil, fmt.Errorf("unknown query %q", query)
	}
}

// relevant filters hub events down to the ones that can change the snapshot
func relevant(query string, userID uuid.UUID, event services.ChangeEvent) bool {
	switch query {
	case QueryUsers:
		return event.Entity == "users"
	case QueryProfile:
		// The profile snapshot embeds the user and avatar rows
		return event.UserID == userID.String() || event.Entity == "files"
	default:
		return false
	}
}
