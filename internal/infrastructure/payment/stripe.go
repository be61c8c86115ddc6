package payment

import (
	"context"
	"fmt"

	"quantprep/internal/pkg/logger"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

type stripeProcessor struct {
	api           *client.API
	webhookSecret string
	log           *logger.Logger
}

func NewStripe(secretKey, webhookSecret string, log *logger.Logger) Processor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeProcessor{api: api, webhookSecret: webhookSecret, log: log}
}

func (p *stripeProcessor) CreateCheckout(ctx context.Context, in CheckoutInput) (Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(in.SuccessURL),
		CancelURL:     stripe.String(in.CancelURL),
		CustomerEmail: stripe.String(in.Email),
		Metadata: map[string]string{
			"userEmail": in.Email,
			"plan":      in.Plan,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"plan": in.Plan},
		},
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		p.log.Error("stripe checkout session failed", "email", in.Email, "price_id", in.PriceID, "error", err)
		return Checkout{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

func (p *stripeProcessor) ParseEvent(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		p.log.Warn("stripe webhook signature failed", "error", err)
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev)
}

var _ Processor = (*stripeProcessor)(nil)
