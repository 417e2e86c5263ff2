/**
 * @description
 * Profile Service.
 * Owns the one-profile-per-user invariant: Ensure is the single authoritative,
 * idempotent bootstrap point, called on every sign-in and safe to call from
 * any number of concurrent client observers. The unique index on
 * user_profiles.user_id arbitrates concurrent creates.
 *
 * @dependencies
 * - gorm.io/gorm
 * - github.com/jackc/pgconn: unique-violation detection on Postgres
 * - backend/internal/models
 */

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/models"
	"gorm.io/gorm"
)

// ErrNoProfile is returned when a user has no profile row yet
var ErrNoProfile = errors.New("profile not found")

// ProfileService handles profile bootstrap, reads and updates
type ProfileService struct {
	db  *gorm.DB
	hub *ChangeHub
}

// NewProfileService creates a new ProfileService
func NewProfileService(db *gorm.DB, hub *ChangeHub) *ProfileService {
	return &ProfileService{
		db:  db,
		hub: hub,
	}
}

// Ensure guarantees the user has exactly one profile row and returns it.
// Losing a concurrent create race is not an error: the loser re-reads the
// winner's row.
func (s *ProfileService) Ensure(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("ensure profile: user id is required")
	}

	var existing models.UserProfile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile := &models.UserProfile{UserID: userID}
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isUniqueViolation(err) {
			// Another observer created the row first; adopt theirs
			var winner models.UserProfile
			if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&winner).Error; err != nil {
				return nil, err
			}
			return &winner, nil
		}
		return nil, err
	}

	s.publish(ctx, ChangeEvent{Entity: "user_profiles", ID: profile.ID.String(), UserID: userID.String()})
	return profile, nil
}

// Get returns the user's profile with the linked user and avatar file
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Avatar").
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update sets both name fields in a single transaction. Empty input unsets
// the field (stored NULL); the two writes cannot partially fail.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*models.UserProfile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"first_name": nullableName(firstName),
		"last_name":  nullableName(lastName),
	}
	if err := s.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("id = ?", profile.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	s.publish(ctx, ChangeEvent{Entity: "user_profiles", ID: profile.ID.String(), UserID: userID.String()})
	return s.Get(ctx, userID)
}

func (s *ProfileService) publish(ctx context.Context, event ChangeEvent) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(ctx, event); err != nil {
		logger.Error("ProfileService: failed to publish change event: %v", err)
	}
}

func nullableName(value string) interface{} {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return gorm.Expr("NULL")
	}
	return trimmed
}

// isUniqueViolation reports whether err is a unique-constraint failure,
// either via GORM's translated error or the raw Postgres error code.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
