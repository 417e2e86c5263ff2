/**
 * @description
 * Auth Service for the magic-code sign-in flow.
 * Orchestrates code creation/delivery, verification, user provisioning on
 * first sign-in, profile bootstrap and session issuance.
 *
 * @dependencies
 * - backend/internal/auth: code store, sessions, mailer
 * - backend/internal/models
 * - gorm.io/gorm
 */

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/polaris-starter/backend/internal/auth"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/polaris-starter/backend/internal/models"
	"gorm.io/gorm"
)

// AuthService drives the passwordless sign-in flow
type AuthService struct {
	db       *gorm.DB
	codes    *auth.CodeStore
	sessions *auth.Sessions
	mailer   auth.Mailer
	profiles *ProfileService
	hub      *ChangeHub
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, codes *auth.CodeStore, sessions *auth.Sessions, mailer auth.Mailer, profiles *ProfileService, hub *ChangeHub) *AuthService {
	return &AuthService{
		db:       db,
		codes:    codes,
		sessions: sessions,
		mailer:   mailer,
		profiles: profiles,
		hub:      hub,
	}
}

// SendMagicCode creates a one-time code for the email and delivers it.
// The email does not need to belong to an existing user: sign-up and sign-in
// are the same flow.
func (s *AuthService) SendMagicCode(ctx context.Context, email string) error {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return err
	}

	code, err := s.codes.Create(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendMagicCode(ctx, email, code); err != nil {
		return fmt.Errorf("deliver magic code: %w", err)
	}
	return nil
}

// VerifyMagicCode consumes a valid code, provisions the user on first
// sign-in, bootstraps their profile and returns a session token.
func (s *AuthService) VerifyMagicCode(ctx context.Context, email, code string) (*models.User, string, error) {
	email, err := auth.NormalizeEmail(email)
	if err != nil {
		return nil, "", err
	}

	if err := s.codes.Verify(ctx, email, code); err != nil {
		return nil, "", err
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return nil, "", err
	}

	// Bootstrap the profile here, at the single authoritative point, so
	// clients never observe a signed-in user without one for long.
	if _, err := s.profiles.Ensure(ctx, user.ID); err != nil {
		logger.Error("AuthService: failed to ensure profile for %s: %v", user.ID, err)
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue session: %w", err)
	}

	return user, token, nil
}

// SignOut revokes the session token
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// GetUser loads a user by id
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.User{Email: &email}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		if isUniqueViolation(err) {
			// Concurrent first sign-in from two devices; adopt the winner
			var winner models.User
			if err := s.db.WithContext(ctx).Where("email = ?", email).First(&winner).Error; err != nil {
				return nil, err
			}
			return &winner, nil
		}
		return nil, err
	}

	if s.hub != nil {
		event := ChangeEvent{Entity: "users", ID: created.ID.String(), UserID: created.ID.String()}
		if err := s.hub.Publish(ctx, event); err != nil {
			logger.Error("AuthService: failed to publish user change: %v", err)
		}
	}

	return &created, nil
}
