// Package payment adapts the hosted checkout processor.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrInvalidPayload   = errors.New("payment: invalid webhook payload")
)

type CheckoutInput struct {
	Email      string
	PriceID    string
	Plan       string
	SuccessURL string
	CancelURL  string
}

type Checkout struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Event is the processor-neutral subset of a webhook notification.
type Event struct {
	ID                 string
	Type               string
	UserEmail          string
	Plan               string
	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string
}

type Processor interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (Checkout, error)
	ParseEvent(payload []byte, signature string) (Event, error)
}

func decodeEvent(ev stripe.Event) (Event, error) {
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out.UserEmail = strings.TrimSpace(sess.Metadata["userEmail"])
		if out.UserEmail == "" {
			out.UserEmail = strings.TrimSpace(sess.CustomerEmail)
		}
		out.Plan = strings.TrimSpace(sess.Metadata["plan"])
		if sess.Customer != nil {
			out.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			out.SubscriptionID = sess.Subscription.ID
		}
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		out.SubscriptionID = sub.ID
		out.SubscriptionStatus = string(sub.Status)
		if sub.Customer != nil {
			out.CustomerID = sub.Customer.ID
		}
		out.Plan = strings.TrimSpace(sub.Metadata["plan"])
	}
	return out, nil
}
