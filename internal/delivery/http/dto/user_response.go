package dto

import (
	"time"

	"quantprep/internal/domain/user"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID                 uuid.UUID               `json:"id"`
	Email              string                  `json:"email"`
	Name               *string                 `json:"name"`
	SubscriptionStatus user.SubscriptionStatus `json:"subscription_status"`
	SubscriptionPlan   user.Plan               `json:"subscription_plan"`
	StripeCustomerID   *string                 `json:"stripe_customer_id,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

func NewUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		SubscriptionStatus: u.SubscriptionStatus,
		SubscriptionPlan:   u.SubscriptionPlan,
		StripeCustomerID:   u.StripeCustomerID,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
