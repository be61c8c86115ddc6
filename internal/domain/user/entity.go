package user

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusFree     SubscriptionStatus = "free"
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
)

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

type User struct {
	ID                 uuid.UUID
	Email              string
	Name               *string
	SubscriptionStatus SubscriptionStatus
	SubscriptionPlan   Plan
	StripeCustomerID   *string
	SubscriptionID     *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsPaying reports whether the user is exempt from the free-tier quota.
func (u User) IsPaying() bool {
	return u.SubscriptionStatus == StatusActive
}

// SubscriptionUpdate carries the fields a billing event may change. Nil
// pointers leave the stored value untouched.
type SubscriptionUpdate struct {
	Status         SubscriptionStatus
	Plan           *Plan
	CustomerID     *string
	SubscriptionID *string
}

func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanFree, PlanPro, PlanEnterprise:
		return p, true
	default:
		return "", false
	}
}
