package routes

import (
	"quantprep/internal/delivery/http/handler"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/ws"

	"github.com/gofiber/fiber/v3"
)

// Registry holds every handler mounted by the HTTP server. Nil handlers are
// skipped.
type Registry struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Interview *handler.InterviewHandler
	Sessions  *handler.SessionHandler
	Billing   *handler.BillingHandler
	Workflow  *handler.WorkflowHandler
	WS        *ws.Handler

	AuthMiddleware *middleware.AuthMiddleware
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil || r == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.Health != nil {
		r.Health.RegisterRoutes(app)
	}
}

func (r *Registry) registerAPI(app *fiber.App) {
	v1 := app.Group("/api").Group("/v1")

	if r.Auth != nil {
		r.Auth.RegisterRoutes(v1.Group("/auth"))
	}
	if r.Billing != nil {
		r.Billing.RegisterRoutes(v1.Group("/billing"))
	}
	if r.WS != nil {
		// the websocket handshake authenticates itself
		v1.Get("/interviews/:id/ws", r.WS.HandleSessionWS)
	}

	auth := r.authHandler()
	if r.Interview != nil {
		r.Interview.RegisterRoutes(v1, auth)
	}
	if r.Users != nil {
		r.Users.RegisterRoutes(v1.Group("/users", auth))
	}
	if r.Sessions != nil {
		r.Sessions.RegisterRoutes(v1.Group("/sessions", auth))
	}
	if r.Workflow != nil {
		r.Workflow.RegisterRoutes(v1.Group("/interviews", auth))
	}
	if r.Billing != nil {
		r.Billing.RegisterProtectedRoutes(v1.Group("/billing", auth))
	}
}

func (r *Registry) authHandler() fiber.Handler {
	if r.AuthMiddleware == nil {
		return func(c fiber.Ctx) error {
			return middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
		}
	}
	return r.AuthMiddleware.Middleware()
}
