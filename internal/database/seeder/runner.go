package seeder

import (
	"context"
	"fmt"
)

type Runner struct {
	Seeders []Seeder
}

func (r Runner) Run(ctx context.Context, t Target) error {
	if t.Users == nil || t.Sessions == nil {
		return fmt.Errorf("seed target missing repositories")
	}
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		if err := s.Run(ctx, t); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
	}
	return nil
}
