package app

import (
	"fmt"
	"strings"

	"quantprep/internal/config"
	"quantprep/internal/delivery/http/handler"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/delivery/http/routes"
	"quantprep/internal/pkg/logger"
	"quantprep/internal/pkg/validator"
	"quantprep/internal/ws"

	"github.com/gofiber/fiber/v3"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName:         c.Config.App.AppName,
		StructValidator: validator.Default(),
	})

	registerGlobalMiddleware(f, c.Log)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

func Bootstrap(cfg config.Config, log *logger.Logger) (*App, func() error, error) {
	c, err := NewContainer(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	app := New(c)
	return app, c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, log *logger.Logger) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(log.With("component", "http")).Middleware())
	app.Use(middleware.NewErrorMiddleware(log).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	checks := map[string]handler.Pinger{"cache": c.Cache}
	if c.DB != nil {
		checks["database"] = c.DB
	}

	reg := &routes.Registry{
		Health:         handler.NewHealthHandler(checks),
		Auth:           handler.NewAuthHandler(c.Auth),
		Users:          handler.NewUserHandler(c.User),
		Interview:      handler.NewInterviewHandler(c.Interview),
		Sessions:       handler.NewSessionHandler(c.Session),
		Billing:        handler.NewBillingHandler(c.Billing),
		Workflow:       handler.NewWorkflowHandler(c.Workflow),
		WS:             ws.NewHandler(c.Hub, c.Tokens, c.Workflow, c.Log),
		AuthMiddleware: middleware.NewAuthMiddleware(c.Tokens),
	}
	reg.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
