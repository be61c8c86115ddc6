package handler

import (
	"context"
	"time"

	"quantprep/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Health)
}

// Health reports each dependency. Optional dependencies never fail the
// check; only their state is reported.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]string{}
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			deps[name] = "down"
			continue
		}
		deps[name] = "up"
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{
		"status":       "ok",
		"dependencies": deps,
	})
}
