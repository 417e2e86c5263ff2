/**
 * @description
 * Migration entry point.
 * Applies the GORM schema for users, profiles and files, including the
 * unique index on user_profiles.user_id that enforces the one-profile-per-
 * user invariant.
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/models
 */

package main

import (
	"github.com/polaris-starter/backend/internal/config"
	"github.com/polaris-starter/backend/internal/db"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres: %v", err)
	}

	if err := pgDB.AutoMigrate(&models.User{}, &models.UserProfile{}, &models.File{}); err != nil {
		logger.Fatal("Migration failed: %v", err)
	}

	logger.Info("✅ Schema migrated")
}
