/**
 * @description
 * Profile API Handlers.
 * Read, bootstrap and update the signed-in user's profile.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/polaris-starter/backend/internal/api/middleware"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/services"
)

// ProfileHandler handles profile requests for the current user
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateProfileRequest defines payload for updating the profile.
// Empty fields are unset, not ignored: both fields are written every time.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GetMyProfile returns the current user's profile with user and avatar links
// GET /api/v1/profile
func (h *ProfileHandler) GetMyProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	profile, err := h.profileService.Get(c.Context(), userID)
	if errors.Is(err, services.ErrNoProfile) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	if err != nil {
		logger.Error("GetMyProfile: failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"profile": profile})
}

// EnsureMyProfile idempotently bootstraps the profile row.
// Safe under any number of concurrent callers.
// POST /api/v1/profile/ensure
func (h *ProfileHandler) EnsureMyProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	profile, err := h.profileService.Ensure(c.Context(), userID)
	if err != nil {
		logger.Error("EnsureMyProfile: failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to ensure profile"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"profile": profile})
}

// UpdateMyProfile writes both name fields in one transaction
// PUT /api/v1/profile
func (h *ProfileHandler) UpdateMyProfile(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileService.Update(c.Context(), userID, req.FirstName, req.LastName)
	if errors.Is(err, services.ErrNoProfile) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	if err != nil {
		logger.Error("UpdateMyProfile: failed for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"profile": profile})
}
