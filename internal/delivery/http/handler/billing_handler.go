package handler

import (
	"errors"

	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/response"
	ucbilling "quantprep/internal/usecase/billing"

	"github.com/gofiber/fiber/v3"
)

const headerStripeSignature = "Stripe-Signature"

type BillingHandler struct {
	uc ucbilling.Usecase
}

type checkoutRequest struct {
	PriceID   string `json:"priceId" validate:"required"`
	UserEmail string `json:"userEmail" validate:"omitempty,email"`
}

func NewBillingHandler(uc ucbilling.Usecase) *BillingHandler {
	return &BillingHandler{uc: uc}
}

// RegisterRoutes mounts the public routes. Checkout needs an identity and is
// mounted separately through RegisterProtectedRoutes.
func (h *BillingHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/plans", h.Plans)
	r.Post("/webhook", h.Webhook)
}

func (h *BillingHandler) RegisterProtectedRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/checkout", h.Checkout)
}

func (h *BillingHandler) Plans(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"plans": h.uc.Plans()})
}

func (h *BillingHandler) Checkout(c fiber.Ctx) error {
	var req checkoutRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	id, err := currentIdentity(c, req.UserEmail)
	if err != nil {
		return err
	}

	out, err := h.uc.Checkout(c.Context(), id.Email, req.PriceID)
	if err != nil {
		return mapBillingUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *BillingHandler) Webhook(c fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	res, err := h.uc.HandleWebhook(c.Context(), payload, c.Get(headerStripeSignature))
	if err != nil {
		return mapBillingUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{
		"received": true,
		"result":   res,
	})
}

func mapBillingUsecaseError(err error) error {
	switch {
	case errors.Is(err, ucbilling.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, ucbilling.ErrInvalidSignature):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid webhook signature", nil, err)
	case errors.Is(err, ucbilling.ErrProcessor):
		return middleware.NewAppError(fiber.StatusBadGateway, "Payment processor unavailable", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
