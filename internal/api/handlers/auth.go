/**
 * @description
 * Auth API Handlers.
 * Drive the magic-code sign-in flow: send a code, verify it for a session
 * token, inspect the session, sign out.
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
	"github.com/polaris-starter/backend/internal/auth"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/services"
)

// AuthHandler handles sign-in and session requests
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SendCodeRequest defines payload for requesting a magic code
type SendCodeRequest struct {
	Email string `json:"email"`
}

// VerifyCodeRequest defines payload for redeeming a magic code
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SendCode emails a one-time sign-in code
// POST /api/v1/auth/send-code
func (h *AuthHandler) SendCode(c *fiber.Ctx) error {
	var req SendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.authService.SendMagicCode(c.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInvalid):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrCodeRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
		default:
			logger.Error("SendCode: failed for %s: %v", req.Email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send code"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "sent"})
}

// VerifyCode redeems a code for a session token
// POST /api/v1/auth/verify-code
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	user, token, err := h.authService.VerifyMagicCode(c.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailInvalid),
			errors.Is(err, auth.ErrCodeInvalid),
			errors.Is(err, auth.ErrCodeExpired),
			errors.Is(err, auth.ErrCodeMissing):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			logger.Error("VerifyCode: failed for %s: %v", req.Email, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify code"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the current authenticated user
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	user, err := h.authService.GetUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.Status(fiber.StatusOK).JSON(user)
}

// SignOut revokes the presented session token
// POST /api/v1/auth/sign-out
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	token := middleware.GetSessionToken(c)
	if token == "" {
		// Bypass mode carries no token; signing out is a no-op
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "signed_out"})
	}

	if err := h.authService.SignOut(c.Context(), token); err != nil {
		logger.Error("SignOut: failed to revoke session: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign out"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "signed_out"})
}
