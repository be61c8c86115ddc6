package handler

import (
	"errors"

	"quantprep/internal/delivery/http/dto"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/response"
	ucauth "quantprep/internal/usecase/auth"
	ucuser "quantprep/internal/usecase/user"

	"github.com/gofiber/fiber/v3"
)

type AuthHandler struct {
	uc ucauth.Usecase
}

type signInRequest struct {
	Email string  `json:"email" validate:"required,email"`
	Name  *string `json:"name" validate:"omitempty,max=120"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuthHandler(uc ucauth.Usecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

func (h *AuthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/sign-in", h.SignIn)
	r.Post("/refresh", h.Refresh)
}

func (h *AuthHandler) SignIn(c fiber.Ctx) error {
	var req signInRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	usr, pair, err := h.uc.SignIn(c.Context(), req.Email, req.Name)
	if err != nil {
		return mapAuthUsecaseError(err)
	}

	data := map[string]any{
		"user":   dto.NewUserResponse(usr),
		"tokens": pair,
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, data)
}

// Refresh accepts the refresh token as a bearer header or in the body.
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	tok, ok := middleware.BearerToken(c.Get("Authorization"))
	if !ok {
		var req refreshRequest
		if len(c.Body()) > 0 {
			if err := bindBody(c, &req); err != nil {
				return err
			}
		}
		tok = req.RefreshToken
	}
	if tok == "" {
		return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}

	pair, err := h.uc.Refresh(c.Context(), tok)
	if err != nil {
		return mapAuthUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"tokens": pair})
}

func mapAuthUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ucuser.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "A valid email is required", nil, err)
	case errors.Is(err, ucauth.ErrRefreshTokenExpired):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Refresh token expired", nil, err)
	case errors.Is(err, ucauth.ErrInvalidRefreshToken):
		return middleware.NewAppError(fiber.StatusUnauthorized, "Invalid refresh token", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
