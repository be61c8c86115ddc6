package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quantprep/internal/domain/user"
	"quantprep/internal/infrastructure/payment"
	"quantprep/internal/pkg/logger"
	ucuser "quantprep/internal/usecase/user"
)

const (
	eventKeyPrefix = "billing:event:"
	eventKeyTTL    = 72 * time.Hour
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrProcessor        = errors.New("payment processor unavailable")
	ErrInternal         = errors.New("internal error")
)

// Deduper remembers processed webhook event ids.
type Deduper interface {
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	ProPriceID              string
	EnterprisePriceID       string
	FrontendURL             string
	FreeMonthlySessionLimit int
}

type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Handled   bool   `json:"handled"`
	Duplicate bool   `json:"duplicate"`
	Updated   int64  `json:"updated"`
}

type Usecase interface {
	Plans() []Plan
	Checkout(ctx context.Context, email string, priceID string) (payment.Checkout, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
}

type Service struct {
	users     user.Repository
	processor payment.Processor
	dedupe    Deduper
	cfg       Config
	plans     []Plan
	log       *logger.Logger
}

func NewService(users user.Repository, processor payment.Processor, dedupe Deduper, cfg Config, log *logger.Logger) (*Service, error) {
	cfg.FrontendURL = strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/")
	plans, err := loadPlans(bundledPlans, cfg)
	if err != nil {
		return nil, err
	}
	return &Service{users: users, processor: processor, dedupe: dedupe, cfg: cfg, plans: plans, log: log}, nil
}

func (s *Service) Plans() []Plan {
	out := make([]Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

func (s *Service) Checkout(ctx context.Context, email string, priceID string) (payment.Checkout, error) {
	email, err := ucuser.NormalizeEmail(email)
	if err != nil {
		return payment.Checkout{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	priceID = strings.TrimSpace(priceID)
	if priceID == "" {
		return payment.Checkout{}, fmt.Errorf("%w: priceId is required", ErrInvalidInput)
	}

	resolved, plan := s.resolvePrice(priceID)
	if resolved == "" {
		return payment.Checkout{}, fmt.Errorf("%w: plan %q has no price configured", ErrInvalidInput, priceID)
	}

	out, err := s.processor.CreateCheckout(ctx, payment.CheckoutInput{
		Email:      email,
		PriceID:    resolved,
		Plan:       string(plan),
		SuccessURL: s.cfg.FrontendURL + "/dashboard?success=true",
		CancelURL:  s.cfg.FrontendURL + "/dashboard?canceled=true",
	})
	if err != nil {
		s.log.Error("checkout session failed", "email", email, "price_id", resolved, "error", err)
		return payment.Checkout{}, fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	s.log.Info("checkout session created", "email", email, "plan", plan, "session_id", out.SessionID)
	return out, nil
}

// resolvePrice accepts either a plan name or a processor price id.
func (s *Service) resolvePrice(v string) (string, user.Plan) {
	switch strings.ToLower(v) {
	case string(user.PlanPro):
		return s.cfg.ProPriceID, user.PlanPro
	case string(user.PlanEnterprise):
		return s.cfg.EnterprisePriceID, user.PlanEnterprise
	case string(user.PlanFree):
		return "", user.PlanFree
	}
	if v == s.cfg.EnterprisePriceID {
		return v, user.PlanEnterprise
	}
	return v, user.PlanPro
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	ev, err := s.processor.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, payment.ErrInvalidPayload) {
			return WebhookResult{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	res := WebhookResult{EventID: ev.ID, Type: ev.Type}

	key := ""
	if ev.ID != "" && s.dedupe != nil {
		key = eventKeyPrefix + ev.ID
		fresh, err := s.dedupe.SetIfNotExists(ctx, key, ev.Type, eventKeyTTL)
		switch {
		case err != nil:
			s.log.Warn("webhook dedupe unavailable", "event_id", ev.ID, "error", err)
			key = ""
		case !fresh:
			s.log.Info("webhook event already processed", "event_id", ev.ID, "type", ev.Type)
			res.Duplicate = true
			return res, nil
		}
	}

	n, handled, err := s.apply(ctx, ev)
	if err != nil {
		if key != "" {
			_ = s.dedupe.Delete(ctx, key)
		}
		s.log.Error("webhook handling failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		return res, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	res.Handled = handled
	res.Updated = n

	if handled && n == 0 {
		s.log.Warn("webhook matched no user", "event_id", ev.ID, "type", ev.Type, "customer_id", ev.CustomerID, "email", ev.UserEmail)
	}
	s.log.Info("webhook processed", "event_id", ev.ID, "type", ev.Type, "handled", handled, "updated", n)
	return res, nil
}

func (s *Service) apply(ctx context.Context, ev payment.Event) (int64, bool, error) {
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		if ev.UserEmail == "" {
			return 0, false, nil
		}
		plan := user.PlanPro
		if p, ok := user.ParsePlan(strings.ToLower(ev.Plan)); ok && p != user.PlanFree {
			plan = p
		}
		upd := user.SubscriptionUpdate{Status: user.StatusActive, Plan: &plan}
		if ev.CustomerID != "" {
			upd.CustomerID = &ev.CustomerID
		}
		if ev.SubscriptionID != "" {
			upd.SubscriptionID = &ev.SubscriptionID
		}
		n, err := s.users.UpdateSubscriptionByEmail(ctx, ev.UserEmail, upd)
		return n, true, err

	case payment.EventSubscriptionUpdated, payment.EventSubscriptionDeleted:
		if ev.CustomerID == "" {
			return 0, false, nil
		}
		upd := user.SubscriptionUpdate{Status: user.StatusInactive}
		if ev.Type == payment.EventSubscriptionUpdated && ev.SubscriptionStatus == "active" {
			upd.Status = user.StatusActive
			if p, ok := user.ParsePlan(strings.ToLower(ev.Plan)); ok && p != user.PlanFree {
				upd.Plan = &p
			}
		}
		if ev.Type == payment.EventSubscriptionDeleted {
			free := user.PlanFree
			upd.Plan = &free
		}
		n, err := s.users.UpdateSubscriptionByCustomerID(ctx, ev.CustomerID, upd)
		return n, true, err
	}
	return 0, false, nil
}

var _ Usecase = (*Service)(nil)
