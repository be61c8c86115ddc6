package handler

import (
	"errors"
	"strings"

	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/validator"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type identity struct {
	UserID uuid.UUID
	Email  string
}

// currentIdentity returns the authenticated caller. An explicit userEmail
// in the request must match the token's email.
func currentIdentity(c fiber.Ctx, explicitEmail string) (identity, error) {
	userID, ok := c.Locals(middleware.CtxUserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return identity{}, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	email, _ := c.Locals(middleware.CtxEmailKey).(string)

	explicitEmail = strings.TrimSpace(explicitEmail)
	if explicitEmail != "" && !strings.EqualFold(explicitEmail, email) {
		return identity{}, middleware.NewAppError(fiber.StatusForbidden, "Email does not match the signed-in user", nil, nil)
	}
	return identity{UserID: userID, Email: email}, nil
}

func pathUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+name, nil, err)
	}
	return id, nil
}

// bindBody decodes the JSON body into out and runs the app's struct
// validator. Validation failures carry the per-field messages as data.
func bindBody(c fiber.Ctx, out any) error {
	err := c.Bind().Body(out)
	if err == nil {
		return nil
	}
	var verr *validator.Error
	if errors.As(err, &verr) {
		return middleware.NewAppError(fiber.StatusBadRequest, verr.Error(), verr.Fields, err)
	}
	return middleware.NewAppError(fiber.StatusBadRequest, "Invalid request payload", nil, err)
}
