package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("email already exists")
)

type Repository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdateSubscriptionByEmail(ctx context.Context, email string, upd SubscriptionUpdate) (int64, error)
	UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, upd SubscriptionUpdate) (int64, error)
}
