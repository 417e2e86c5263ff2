/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 * - backend/internal/rpc
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/polaris-starter/backend/internal/api/handlers"
	"github.com/polaris-starter/backend/internal/api/middleware"
	"github.com/polaris-starter/backend/internal/auth"
	"github.com/polaris-starter/backend/internal/config"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/rpc"
	"github.com/polaris-starter/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	// 1. Initialize auth plumbing
	sessions := auth.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, rdb)
	if err := sessions.WithJWKS(cfg.Auth.JWKSURL); err != nil {
		logger.Error("Failed to init JWKS validation: %v", err)
		// The app still starts; locally issued tokens keep working.
	}
	middleware.InitAuthMiddleware(sessions, cfg.Auth.Bypass)

	codes := auth.NewCodeStore(rdb, cfg.Auth.MagicCodeTTL)
	mailer := auth.NewMailer(cfg.Mail)

	// 2. Initialize Services
	hub := services.NewChangeHub(rdb)
	profileService := services.NewProfileService(db, hub)
	userService := services.NewUserService(db, rdb)
	authService := services.NewAuthService(db, codes, sessions, mailer, profileService, hub)

	// 3. Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	profileHandler := handlers.NewProfileHandler(profileService)
	subscribeHandler := handlers.NewSubscribeHandler(hub, userService, profileService)
	rpcHandler := handlers.NewRPCHandler(rpc.NewAppRouter())

	// 4. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "app_id": cfg.Server.AppID})
	})

	authGroup := v1.Group("/auth")
	authGroup.Post("/send-code", authHandler.SendCode)
	authGroup.Post("/verify-code", authHandler.VerifyCode)
	authGroup.Get("/me", middleware.Protected(), authHandler.Me)
	authGroup.Post("/sign-out", middleware.Protected(), authHandler.SignOut)

	// RPC Routes (Public)
	v1.Get("/rpc/:procs", rpcHandler.Call)
	v1.Post("/rpc/:procs", rpcHandler.Call)

	// Data Routes (Protected)
	v1.Get("/users", middleware.Protected(), userHandler.ListUsers)
	v1.Get("/profile", middleware.Protected(), profileHandler.GetMyProfile)
	v1.Post("/profile/ensure", middleware.Protected(), profileHandler.EnsureMyProfile)
	v1.Put("/profile", middleware.Protected(), profileHandler.UpdateMyProfile)
	v1.Get("/subscribe", middleware.Protected(), subscribeHandler.Stream)
}
