package app

import (
	"context"
	"fmt"
	"time"

	"quantprep/internal/config"
	"quantprep/internal/database"
	"quantprep/internal/database/migration"
	dbpostgres "quantprep/internal/database/postgres"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/internal/infrastructure/cache"
	"quantprep/internal/infrastructure/llm"
	"quantprep/internal/infrastructure/payment"
	"quantprep/internal/infrastructure/persistence/memory"
	"quantprep/internal/infrastructure/persistence/postgres"
	"quantprep/internal/pkg/jwt"
	"quantprep/internal/pkg/logger"
	ucauth "quantprep/internal/usecase/auth"
	ucbilling "quantprep/internal/usecase/billing"
	ucinterview "quantprep/internal/usecase/interview"
	ucsession "quantprep/internal/usecase/session"
	ucuser "quantprep/internal/usecase/user"
	"quantprep/internal/workflow"
	"quantprep/internal/ws"
	"quantprep/migrations"
)

// Container owns every long-lived dependency of the server.
type Container struct {
	Config config.Config
	Log    *logger.Logger

	DB    database.DB
	Cache *cache.Redis

	Users    user.Repository
	Sessions session.Repository

	Tokens    jwt.Service
	Auth      *ucauth.Service
	User      *ucuser.Service
	Interview *ucinterview.Service
	Session   *ucsession.Service
	Billing   *ucbilling.Service
	Workflow  *workflow.Engine
	Hub       *ws.Hub

	stopHub context.CancelFunc
}

func NewContainer(cfg config.Config, log *logger.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &Container{Config: cfg, Log: log}

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}

	c.Cache = cache.NewRedis(ctx, cfg.Redis, log)

	var client llm.Client
	switch cfg.AI.Provider {
	case config.AIProviderGemini:
		gemini, err := llm.NewGemini(context.Background(), cfg.AI, log.With("component", "gemini"))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		client = gemini
	default:
		log.Info("using mock AI provider")
		client = llm.NewMock()
	}

	var processor payment.Processor
	switch cfg.Payment.Provider {
	case config.PaymentProviderStripe:
		processor = payment.NewStripe(cfg.Payment.StripeSecretKey, cfg.Payment.StripeWebhookSecret, log)
	default:
		log.Info("using mock payment processor")
		if cfg.Payment.StripeWebhookSecret == "" {
			log.Warn("STRIPE_WEBHOOK_SECRET not set, billing webhooks will be rejected")
		}
		processor = payment.NewMock(cfg.Payment.FrontendURL, cfg.Payment.StripeWebhookSecret)
	}

	c.Tokens = jwt.NewHMACService(cfg.App.AppName, cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessExpiresIn, cfg.JWT.RefreshExpiresIn)

	c.User = ucuser.NewService(c.Users, c.Sessions, cfg.Interview.FreeMonthlySessionLimit)
	c.Auth = ucauth.NewService(c.User, c.Users, c.Tokens)
	c.Interview = ucinterview.NewService(client, ucinterview.DefaultBank(), log.With("component", "interview"))
	c.Session = ucsession.NewService(c.Users, c.Sessions, ucsession.Config{
		QuestionCount:           cfg.Interview.QuestionCount,
		FreeMonthlySessionLimit: cfg.Interview.FreeMonthlySessionLimit,
	}, log.With("component", "session"))

	billing, err := ucbilling.NewService(c.Users, processor, c.Cache, ucbilling.Config{
		ProPriceID:              cfg.Payment.StripeProPriceID,
		EnterprisePriceID:       cfg.Payment.StripeEnterprisePriceID,
		FrontendURL:             cfg.Payment.FrontendURL,
		FreeMonthlySessionLimit: cfg.Interview.FreeMonthlySessionLimit,
	}, log.With("component", "billing"))
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Billing = billing

	c.Hub = ws.NewHub(log.With("component", "ws"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	c.stopHub = stopHub
	go c.Hub.Run(hubCtx)

	c.Workflow = workflow.NewEngine(c.Interview, c.Session, c.Cache, c.Hub, workflow.Config{
		QuestionCount: cfg.Interview.QuestionCount,
		Duration:      cfg.Interview.Duration,
		TickInterval:  cfg.Interview.TickInterval,
	}, log.With("component", "workflow"))

	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	switch c.Config.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := dbpostgres.Connect(ctx, c.Config.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if c.Config.Database.AutoMigrate {
			applied, err := migration.Runner{Dir: c.Config.Database.MigrationsDir, FS: migrations.FS}.Run(ctx, db.SQLDB())
			if err != nil {
				_ = db.Close()
				return fmt.Errorf("run migrations: %w", err)
			}
			for _, m := range applied {
				c.Log.Info("migration applied", "version", m.Version, "name", m.Name)
			}
		}
		c.DB = db
		c.Users = postgres.NewUserRepository(db)
		c.Sessions = postgres.NewSessionRepository(db)
	default:
		c.Log.Info("using in-memory store")
		store := memory.NewStore()
		c.Users = store.Users()
		c.Sessions = store.Sessions()
	}
	return nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Workflow != nil {
		c.Workflow.Shutdown()
	}
	if c.stopHub != nil {
		c.stopHub()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
