/**
 * @description
 * Magic-code store for passwordless sign-in.
 * Codes are 6-digit, bcrypt-hashed, stored in Redis with a TTL, one active
 * code per email. Sending is rate limited and verification attempts are
 * capped before the code is invalidated.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 * - golang.org/x/crypto/bcrypt
 */

package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCodeRateLimited = errors.New("too many code requests, try again shortly")
	ErrCodeInvalid     = errors.New("incorrect verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeMissing     = errors.New("no pending verification code for this email")
	ErrEmailInvalid    = errors.New("email format is invalid")
)

const (
	codeKeyPrefix   = "polaris:auth:code"
	resendKeyPrefix = "polaris:auth:resend"
)

// CodeStore manages one-time sign-in codes in Redis
type CodeStore struct {
	redis       *redis.Client
	ttl         time.Duration
	resendAfter time.Duration
	maxAttempts int
}

type codeChallenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

// NewCodeStore creates a CodeStore with the given code lifetime
func NewCodeStore(rdb *redis.Client, ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CodeStore{
		redis:       rdb,
		ttl:         ttl,
		resendAfter: 30 * time.Second,
		maxAttempts: 5,
	}
}

// Create generates and stores a fresh code for the email, returning the
// plaintext code for delivery. A previous unconsumed code is replaced.
func (s *CodeStore) Create(ctx context.Context, email string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	// Resend throttle: one send per window per email
	allowed, err := s.redis.SetNX(ctx, resendKeyPrefix+":"+email, "1", s.resendAfter).Result()
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrCodeRateLimited
	}

	code, err := generateNumericCode(6)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	challenge := codeChallenge{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	raw, err := json.Marshal(challenge)
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, codeKeyPrefix+":"+email, raw, s.ttl+time.Minute).Err(); err != nil {
		return "", err
	}

	return code, nil
}

// Verify checks a submitted code against the pending challenge for the email.
// The challenge is consumed on success and after too many failed attempts.
func (s *CodeStore) Verify(ctx context.Context, email, code string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeInvalid
	}

	key := codeKeyPrefix + ":" + email
	raw, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCodeMissing
	}
	if err != nil {
		return err
	}

	var challenge codeChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return fmt.Errorf("unmarshal challenge: %w", err)
	}
	if time.Now().UTC().After(challenge.ExpiresAt) {
		_ = s.redis.Del(ctx, key).Err()
		return ErrCodeExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		challenge.Attempts++
		if challenge.Attempts >= s.maxAttempts {
			_ = s.redis.Del(ctx, key).Err()
		} else if updated, marshalErr := json.Marshal(challenge); marshalErr == nil {
			ttl, ttlErr := s.redis.TTL(ctx, key).Result()
			if ttlErr == nil && ttl > 0 {
				_ = s.redis.Set(ctx, key, updated, ttl).Err()
			}
		}
		return ErrCodeInvalid
	}

	return s.redis.Del(ctx, key).Err()
}

// NormalizeEmail lowercases, trims and validates an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", ErrEmailInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrEmailInvalid
	}
	return email, nil
}

func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
