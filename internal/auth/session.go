/**
 * @description
 * Session token issuance and verification.
 * Locally issued tokens are HS256 JWTs (sub = user id, jti for revocation).
 * Deployments fronted by an external identity provider may additionally
 * accept RS256 tokens validated against a JWKS endpoint.
 * Sign-out places the token's jti in a Redis denylist until expiry.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT signing and parsing
 * - github.com/MicahParks/keyfunc/v2: JWKS fetching and caching
 * - github.com/redis/go-redis/v9: revocation denylist
 */

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/polaris-starter/backend/internal/logger"
	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenInvalid = errors.New("invalid session token")
	ErrTokenRevoked = errors.New("session has been signed out")
)

const denylistKeyPrefix = "polaris:auth:revoked"

// Sessions issues and validates session tokens
type Sessions struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	jwks   *keyfunc.JWKS
}

// NewSessions creates a session manager signing with the given secret
func NewSessions(secret string, ttl time.Duration, rdb *redis.Client) *Sessions {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  rdb,
	}
}

// WithJWKS enables validation of externally issued RS256 tokens.
// The JWKS is refreshed hourly.
func (s *Sessions) WithJWKS(jwksURL string) error {
	if jwksURL == "" {
		return nil
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			logger.Error("There was an error with the JWKS refresh: %v", err)
		},
	})
	if err != nil {
		return err
	}
	s.jwks = jwks
	logger.Info("✅ Sessions accepting JWKS-validated tokens")
	return nil
}

// Issue creates a signed session token for the user
func (s *Sessions) Issue(userID uuid.UUID) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a token and returns the subject user id.
// Revoked tokens are rejected even before their expiry.
func (s *Sessions) Verify(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, s.keyfunc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrTokenInvalid
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: token missing subject", ErrTokenInvalid)
	}

	if jti, ok := claims["jti"].(string); ok && jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, denylistKeyPrefix+":"+jti).Result()
		if err != nil {
			return "", err
		}
		if revoked > 0 {
			return "", ErrTokenRevoked
		}
	}

	return sub, nil
}

// Revoke denylists the token's jti for the remainder of its lifetime
func (s *Sessions) Revoke(ctx context.Context, tokenString string) error {
	token, err := jwt.Parse(tokenString, s.keyfunc)
	if err != nil || !token.Valid {
		// Nothing to revoke for a token we would not accept anyway
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" || s.redis == nil {
		return nil
	}

	remaining := s.ttl
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		remaining = time.Until(exp.Time)
	}
	if remaining <= 0 {
		return nil
	}
	return s.redis.Set(ctx, denylistKeyPrefix+":"+jti, "1", remaining).Err()
}

// keyfunc resolves the verification key per token algorithm: HS256 tokens
// use the local secret, RS256 tokens require the configured JWKS.
func (s *Sessions) keyfunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return s.secret, nil
	case *jwt.SigningMethodRSA:
		if s.jwks == nil {
			return nil, errors.New("external tokens not accepted: no JWKS configured")
		}
		return s.jwks.Keyfunc(token)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}
