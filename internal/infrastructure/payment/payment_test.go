package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"quantprep/internal/pkg/logger"

	"github.com/stripe/stripe-go/v79/webhook"
)

const checkoutEvent = `{
  "id": "evt_checkout_1",
  "object": "event",
  "api_version": "2020-08-27",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "customer": "cus_42",
      "subscription": "sub_42",
      "customer_email": "fallback@example.com",
      "metadata": {"userEmail": "jane@example.com", "plan": "enterprise"}
    }
  }
}`

const subscriptionDeletedEvent = `{
  "id": "evt_sub_1",
  "object": "event",
  "type": "customer.subscription.deleted",
  "data": {
    "object": {
      "id": "sub_42",
      "object": "subscription",
      "customer": "cus_42",
      "status": "canceled"
    }
  }
}`

func TestStripe_ParseEvent_VerifiesSignature(t *testing.T) {
	p := NewStripe("sk_test_x", "whsec_test", logger.NewNop())

	s := signed(checkoutEvent, "whsec_test")

	ev, err := p.ParseEvent(s.Payload, s.Header)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.ID != "evt_checkout_1" || ev.Type != EventCheckoutCompleted {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.UserEmail != "jane@example.com" || ev.Plan != "enterprise" {
		t.Fatalf("unexpected metadata %+v", ev)
	}
	if ev.CustomerID != "cus_42" || ev.SubscriptionID != "sub_42" {
		t.Fatalf("unexpected ids %+v", ev)
	}

	if _, err := p.ParseEvent([]byte(checkoutEvent), "t=1,v1=bad"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func signed(payload, secret string) webhook.SignedPayload {
	return *webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
}

func TestMock_ParseEvent(t *testing.T) {
	m := NewMock("http://localhost:3000", "whsec_dev")

	if _, err := m.ParseEvent([]byte(checkoutEvent), ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing signature, got %v", err)
	}
	if _, err := m.ParseEvent([]byte(checkoutEvent), "t=1,v1=forged"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for forged signature, got %v", err)
	}
	other := signed(checkoutEvent, "whsec_other")
	if _, err := m.ParseEvent(other.Payload, other.Header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for wrong secret, got %v", err)
	}
	bad := signed("not json", "whsec_dev")
	if _, err := m.ParseEvent(bad.Payload, bad.Header); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}

	ok := signed(subscriptionDeletedEvent, "whsec_dev")
	ev, err := m.ParseEvent(ok.Payload, ok.Header)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != EventSubscriptionDeleted || ev.CustomerID != "cus_42" || ev.SubscriptionStatus != "canceled" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestMock_RejectsWebhooksWithoutSecret(t *testing.T) {
	m := NewMock("http://localhost:3000", "")
	s := signed(checkoutEvent, "")
	if _, err := m.ParseEvent(s.Payload, s.Header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature without a secret, got %v", err)
	}
}

func TestMock_CreateCheckout(t *testing.T) {
	m := NewMock("http://localhost:3000/", "")
	m.Now = func() time.Time { return time.UnixMilli(1700000000000) }

	out, err := m.CreateCheckout(context.Background(), CheckoutInput{Email: "a@example.com", PriceID: "price_pro"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if out.SessionID != "mock_session_1700000000000" {
		t.Fatalf("unexpected session id %q", out.SessionID)
	}
	if !strings.HasPrefix(out.URL, "http://localhost:3000/dashboard?") || !strings.Contains(out.URL, "mock_checkout=true") || !strings.Contains(out.URL, "plan=price_pro") {
		t.Fatalf("unexpected url %q", out.URL)
	}
}
