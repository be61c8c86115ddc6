package handler

import (
	"errors"

	"quantprep/internal/delivery/http/dto"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/response"
	ucuser "quantprep/internal/usecase/user"

	"github.com/gofiber/fiber/v3"
)

type UserHandler struct {
	uc ucuser.Usecase
}

func NewUserHandler(uc ucuser.Usecase) *UserHandler {
	return &UserHandler{uc: uc}
}

func (h *UserHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Get("/me", h.GetMe)
	r.Get("/me/usage", h.GetUsage)
}

func (h *UserHandler) GetMe(c fiber.Ctx) error {
	id, err := currentIdentity(c, c.Query("userEmail"))
	if err != nil {
		return err
	}

	prof, err := h.uc.GetProfile(c.Context(), id.UserID)
	if err != nil {
		return mapUserUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewUserResponse(prof))
}

func (h *UserHandler) GetUsage(c fiber.Ctx) error {
	id, err := currentIdentity(c, c.Query("userEmail"))
	if err != nil {
		return err
	}

	usage, err := h.uc.Usage(c.Context(), id.UserID)
	if err != nil {
		return mapUserUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, usage)
}

func mapUserUsecaseError(err error) error {
	switch {
	case errors.Is(err, ucuser.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "User not found", nil, err)
	case errors.Is(err, ucuser.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request payload", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
