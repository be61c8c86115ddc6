package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Mock never calls out. Webhooks are still verified against WebhookSecret;
// with no secret every webhook is rejected.
type Mock struct {
	FrontendURL   string
	WebhookSecret string
	Now           func() time.Time
}

func NewMock(frontendURL, webhookSecret string) *Mock {
	return &Mock{
		FrontendURL:   strings.TrimRight(frontendURL, "/"),
		WebhookSecret: strings.TrimSpace(webhookSecret),
		Now:           time.Now,
	}
}

func (m *Mock) CreateCheckout(ctx context.Context, in CheckoutInput) (Checkout, error) {
	if err := ctx.Err(); err != nil {
		return Checkout{}, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	q := url.Values{}
	q.Set("mock_checkout", "true")
	q.Set("plan", in.PriceID)
	return Checkout{
		SessionID: fmt.Sprintf("mock_session_%d", now().UnixMilli()),
		URL:       m.FrontendURL + "/dashboard?" + q.Encode(),
	}, nil
}

func (m *Mock) ParseEvent(payload []byte, signature string) (Event, error) {
	if m.WebhookSecret == "" {
		return Event{}, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, signature, m.WebhookSecret); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return decodeEvent(ev)
}

var _ Processor = (*Mock)(nil)
