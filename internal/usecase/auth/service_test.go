package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"quantprep/internal/infrastructure/persistence/memory"
	"quantprep/internal/pkg/jwt"
	ucuser "quantprep/internal/usecase/user"
)

func newService() (*Service, *jwt.HMACService) {
	store := memory.NewStore()
	tokens := jwt.NewHMACService("quantprep", "a", "r", time.Minute, time.Hour)
	resolver := ucuser.NewService(store.Users(), store.Sessions(), 3)
	return NewService(resolver, store.Users(), tokens), tokens
}

func TestSignIn_IssuesTokensForResolvedUser(t *testing.T) {
	svc, tokens := newService()

	u, pair, err := svc.SignIn(context.Background(), "Alex@Example.com", nil)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	c, err := tokens.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.UserID != u.ID || c.Email != "alex@example.com" {
		t.Fatalf("unexpected claims %+v", c)
	}

	again, _, err := svc.SignIn(context.Background(), "alex@example.com", nil)
	if err != nil || again.ID != u.ID {
		t.Fatalf("expected same user on repeat sign-in, err=%v", err)
	}
}

func TestSignIn_InvalidEmail(t *testing.T) {
	svc, _ := newService()
	if _, _, err := svc.SignIn(context.Background(), "nope", nil); !errors.Is(err, ucuser.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, tokens := newService()
	_, pair, err := svc.SignIn(context.Background(), "r@example.com", nil)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := tokens.ValidateAccessToken(next.AccessToken); err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected access token to be refused, got %v", err)
	}
}
