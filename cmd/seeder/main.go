package main

import (
	"context"
	"log"
	"time"

	"quantprep/internal/app"
	"quantprep/internal/config"
	"quantprep/internal/database/seeder"
	"quantprep/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer lg.Sync()

	if cfg.Store.Driver != config.StoreDriverPostgres {
		lg.Warn("seeding the in-memory store; data is lost when this process exits")
	}

	c, err := app.NewContainer(cfg, lg)
	if err != nil {
		lg.Fatal("failed to init container", "error", err)
	}
	defer func() {
		_ = c.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r := seeder.Runner{Seeders: []seeder.Seeder{seeder.DemoSeeder{Log: lg}}}
	if err := r.Run(ctx, seeder.Target{DB: c.DB, Users: c.Users, Sessions: c.Sessions}); err != nil {
		lg.Fatal("seed failed", "error", err)
	}
	lg.Info("seed data created")
}
