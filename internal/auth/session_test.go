package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSessions("test-secret", time.Hour, client)
}

func TestIssueAndVerify(t *testing.T) {
	sessions := newTestSessions(t)
	userID := uuid.New()

	token, err := sessions.Issue(userID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	sub, err := sessions.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("failed to verify token: %v", err)
	}
	if sub != userID.String() {
		t.Fatalf("expected subject %s, got %s", userID, sub)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	sessions := newTestSessions(t)

	if _, err := sessions.Verify(context.Background(), "not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	sessions := newTestSessions(t)
	other := NewSessions("other-secret", time.Hour, nil)

	token, err := other.Issue(uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := sessions.Verify(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign token, got %v", err)
	}
}

func TestRevokeRejectsToken(t *testing.T) {
	sessions := newTestSessions(t)
	ctx := context.Background()

	token, err := sessions.Issue(uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if _, err := sessions.Verify(ctx, token); err != nil {
		t.Fatalf("token should verify before revocation: %v", err)
	}

	if err := sessions.Revoke(ctx, token); err != nil {
		t.Fatalf("failed to revoke token: %v", err)
	}
	if _, err := sessions.Verify(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	// Other sessions for the same user remain valid
	fresh, err := sessions.Issue(uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if _, err := sessions.Verify(ctx, fresh); err != nil {
		t.Fatalf("fresh token should still verify: %v", err)
	}
}
