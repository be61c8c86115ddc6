package seeder

import (
	"context"

	"quantprep/internal/database"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
)

// Target is what a seeder writes to. DB is nil for the in-memory store.
type Target struct {
	DB       database.DB
	Users    user.Repository
	Sessions session.Repository
}

type Seeder interface {
	Name() string
	Run(ctx context.Context, t Target) error
}
