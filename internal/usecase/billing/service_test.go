package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quantprep/internal/domain/user"
	"quantprep/internal/infrastructure/payment"
	"quantprep/internal/infrastructure/persistence/memory"
	"quantprep/internal/pkg/logger"

	"github.com/stripe/stripe-go/v79/webhook"
)

type memDedupe struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemDedupe() *memDedupe {
	return &memDedupe{keys: map[string]string{}}
}

func (d *memDedupe) SetIfNotExists(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.keys[key]; ok {
		return false, nil
	}
	d.keys[key] = value
	return true, nil
}

func (d *memDedupe) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	return nil
}

type failingProcessor struct {
	payment.Processor
}

func (failingProcessor) CreateCheckout(context.Context, payment.CheckoutInput) (payment.Checkout, error) {
	return payment.Checkout{}, errors.New("stripe down")
}

type recordingProcessor struct {
	*payment.Mock
	last payment.CheckoutInput
}

func (r *recordingProcessor) CreateCheckout(ctx context.Context, in payment.CheckoutInput) (payment.Checkout, error) {
	r.last = in
	return r.Mock.CreateCheckout(ctx, in)
}

var testConfig = Config{
	ProPriceID:              "price_pro",
	EnterprisePriceID:       "price_ent",
	FrontendURL:             "http://localhost:3000/",
	FreeMonthlySessionLimit: 3,
}

func newService(t *testing.T, p payment.Processor, d Deduper) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc, err := NewService(store.Users(), p, d, testConfig, logger.NewNop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

const webhookSecret = "whsec_billing"

func newMock() *payment.Mock {
	return payment.NewMock("http://x", webhookSecret)
}

// deliver hands svc a webhook signed with webhookSecret.
func deliver(ctx context.Context, svc *Service, payload string) (WebhookResult, error) {
	s := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	return svc.HandleWebhook(ctx, s.Payload, s.Header)
}

const completedEvent = `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_9","subscription":"sub_9","metadata":{"userEmail":"pay@example.com"}}}}`

func TestHandleWebhook_CheckoutCompletedIsIdempotent(t *testing.T) {
	// no dedupe store: replays rely on the update being idempotent
	svc, store := newService(t, newMock(), nil)
	ctx := context.Background()
	u, _ := store.Users().Create(ctx, user.User{Email: "pay@example.com"})

	var states []user.User
	for i := 0; i < 2; i++ {
		res, err := deliver(ctx, svc, completedEvent)
		if err != nil {
			t.Fatalf("webhook %d: %v", i, err)
		}
		if !res.Handled || res.Updated != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		got, _ := store.Users().GetByID(ctx, u.ID)
		states = append(states, got)
	}

	for _, got := range states {
		if got.SubscriptionStatus != user.StatusActive || got.SubscriptionPlan != user.PlanPro {
			t.Fatalf("unexpected state %s/%s", got.SubscriptionStatus, got.SubscriptionPlan)
		}
		if got.StripeCustomerID == nil || *got.StripeCustomerID != "cus_9" || got.SubscriptionID == nil || *got.SubscriptionID != "sub_9" {
			t.Fatalf("expected processor ids stored")
		}
	}
}

func TestHandleWebhook_DuplicateEventSkipped(t *testing.T) {
	d := newMemDedupe()
	svc, store := newService(t, newMock(), d)
	ctx := context.Background()
	_, _ = store.Users().Create(ctx, user.User{Email: "pay@example.com"})

	if res, err := deliver(ctx, svc, completedEvent); err != nil || res.Duplicate {
		t.Fatalf("first delivery: res=%+v err=%v", res, err)
	}
	res, err := deliver(ctx, svc, completedEvent)
	if err != nil || !res.Duplicate || res.Updated != 0 {
		t.Fatalf("expected duplicate skip, res=%+v err=%v", res, err)
	}
}

func TestHandleWebhook_SubscriptionLifecycle(t *testing.T) {
	svc, store := newService(t, newMock(), newMemDedupe())
	ctx := context.Background()
	u, _ := store.Users().Create(ctx, user.User{Email: "pay@example.com"})
	if _, err := deliver(ctx, svc, completedEvent); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	pastDue := `{"id":"evt_2","type":"customer.subscription.updated","data":{"object":{"id":"sub_9","object":"subscription","customer":"cus_9","status":"past_due"}}}`
	if _, err := deliver(ctx, svc, pastDue); err != nil {
		t.Fatalf("updated: %v", err)
	}
	got, _ := store.Users().GetByID(ctx, u.ID)
	if got.SubscriptionStatus != user.StatusInactive || got.SubscriptionPlan != user.PlanPro {
		t.Fatalf("expected inactive pro, got %s/%s", got.SubscriptionStatus, got.SubscriptionPlan)
	}

	active := `{"id":"evt_3","type":"customer.subscription.updated","data":{"object":{"id":"sub_9","object":"subscription","customer":"cus_9","status":"active","metadata":{"plan":"enterprise"}}}}`
	if _, err := deliver(ctx, svc, active); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, _ = store.Users().GetByID(ctx, u.ID)
	if got.SubscriptionStatus != user.StatusActive || got.SubscriptionPlan != user.PlanEnterprise {
		t.Fatalf("expected active enterprise, got %s/%s", got.SubscriptionStatus, got.SubscriptionPlan)
	}

	deleted := `{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{"id":"sub_9","object":"subscription","customer":"cus_9","status":"canceled"}}}`
	if _, err := deliver(ctx, svc, deleted); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	got, _ = store.Users().GetByID(ctx, u.ID)
	if got.SubscriptionStatus != user.StatusInactive || got.SubscriptionPlan != user.PlanFree {
		t.Fatalf("expected inactive free, got %s/%s", got.SubscriptionStatus, got.SubscriptionPlan)
	}
}

func TestHandleWebhook_InvalidSignatureChangesNothing(t *testing.T) {
	svc, store := newService(t, newMock(), newMemDedupe())
	ctx := context.Background()
	u, _ := store.Users().Create(ctx, user.User{Email: "pay@example.com"})

	if _, err := svc.HandleWebhook(ctx, []byte(completedEvent), ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := svc.HandleWebhook(ctx, []byte(completedEvent), "t=1,v1=forged"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for forged signature, got %v", err)
	}
	got, _ := store.Users().GetByID(ctx, u.ID)
	if got.SubscriptionStatus != user.StatusFree {
		t.Fatalf("expected no change, got %s", got.SubscriptionStatus)
	}
}

func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	svc, _ := newService(t, newMock(), nil)
	res, err := deliver(context.Background(), svc, `{"id":"evt_5","type":"invoice.paid","data":{"object":{}}}`)
	if err != nil || res.Handled {
		t.Fatalf("expected acknowledged but unhandled, res=%+v err=%v", res, err)
	}
}

func TestCheckout_ResolvesPlanNames(t *testing.T) {
	p := &recordingProcessor{Mock: payment.NewMock("http://localhost:3000", webhookSecret)}
	svc, _ := newService(t, p, nil)

	out, err := svc.Checkout(context.Background(), "Buyer@Example.com", "enterprise")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if out.SessionID == "" || out.URL == "" {
		t.Fatalf("expected session id and url, got %+v", out)
	}
	if p.last.PriceID != "price_ent" || p.last.Plan != "enterprise" || p.last.Email != "buyer@example.com" {
		t.Fatalf("unexpected processor input %+v", p.last)
	}
	if p.last.SuccessURL != "http://localhost:3000/dashboard?success=true" || p.last.CancelURL != "http://localhost:3000/dashboard?canceled=true" {
		t.Fatalf("unexpected redirect urls %+v", p.last)
	}

	if _, err := svc.Checkout(context.Background(), "buyer@example.com", "price_custom"); err != nil {
		t.Fatalf("literal price: %v", err)
	}
	if p.last.PriceID != "price_custom" || p.last.Plan != "pro" {
		t.Fatalf("unexpected processor input %+v", p.last)
	}
}

func TestCheckout_Errors(t *testing.T) {
	svc, _ := newService(t, newMock(), nil)
	if _, err := svc.Checkout(context.Background(), "", "pro"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing email, got %v", err)
	}
	if _, err := svc.Checkout(context.Background(), "a@example.com", " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing price, got %v", err)
	}
	if _, err := svc.Checkout(context.Background(), "a@example.com", "free"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for free plan, got %v", err)
	}

	failing, _ := newService(t, failingProcessor{}, nil)
	if _, err := failing.Checkout(context.Background(), "a@example.com", "pro"); !errors.Is(err, ErrProcessor) {
		t.Fatalf("expected ErrProcessor, got %v", err)
	}
}

func TestPlans(t *testing.T) {
	svc, _ := newService(t, newMock(), nil)
	plans := svc.Plans()
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}
	if plans[0].ID != user.PlanFree || plans[0].MonthlySessions != 3 || plans[0].Features[0] != "3 practice sessions per month" {
		t.Fatalf("unexpected free plan %+v", plans[0])
	}
	if plans[1].PriceID != "price_pro" || !plans[1].Popular {
		t.Fatalf("unexpected pro plan %+v", plans[1])
	}
}
