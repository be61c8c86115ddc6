package auth

import (
	"context"
	"errors"
	"fmt"

	"quantprep/internal/domain/user"
	"quantprep/internal/pkg/jwt"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrInternal            = errors.New("internal error")
)

// Resolver finds or registers the account behind an email.
type Resolver interface {
	Resolve(ctx context.Context, email string, name *string) (user.User, error)
}

type Usecase interface {
	SignIn(ctx context.Context, email string, name *string) (user.User, jwt.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error)
}

// Service issues identity tokens. Sign-in is password-less: upstream
// identity is trusted and only the email is recorded.
type Service struct {
	resolver Resolver
	users    user.Repository
	tokens   jwt.Service
}

func NewService(resolver Resolver, users user.Repository, tokens jwt.Service) *Service {
	return &Service{resolver: resolver, users: users, tokens: tokens}
}

func (s *Service) SignIn(ctx context.Context, email string, name *string) (user.User, jwt.TokenPair, error) {
	u, err := s.resolver.Resolve(ctx, email, name)
	if err != nil {
		return user.User{}, jwt.TokenPair{}, err
	}
	pair, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return user.User{}, jwt.TokenPair{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (jwt.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return jwt.TokenPair{}, ErrRefreshTokenExpired
		}
		return jwt.TokenPair{}, ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return jwt.TokenPair{}, ErrInvalidRefreshToken
		}
		return jwt.TokenPair{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	pair, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return pair, nil
}

var _ Usecase = (*Service)(nil)
