package memory

import (
	"context"
	"strings"

	"quantprep/internal/domain/user"

	"github.com/google/uuid"
)

type UserRepository struct {
	store *Store
}

func (r *UserRepository) Create(_ context.Context, u user.User) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.emails[email]; ok {
		return user.User{}, user.ErrEmailExists
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = user.StatusFree
	}
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = user.PlanFree
	}
	now := s.now().UTC()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.emails[email] = u.ID
	return cloneUser(u), nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (user.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(s.users[id]), nil
}

func (r *UserRepository) UpdateSubscriptionByEmail(_ context.Context, email string, upd user.SubscriptionUpdate) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return 0, nil
	}
	s.applyUpdate(id, upd)
	return 1, nil
}

func (r *UserRepository) UpdateSubscriptionByCustomerID(_ context.Context, customerID string, upd user.SubscriptionUpdate) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.users {
		if u.StripeCustomerID == nil || *u.StripeCustomerID != customerID {
			continue
		}
		s.applyUpdate(id, upd)
		n++
	}
	return n, nil
}

// applyUpdate must be called with s.mu held.
func (s *Store) applyUpdate(id uuid.UUID, upd user.SubscriptionUpdate) {
	u := s.users[id]
	if upd.Status != "" {
		u.SubscriptionStatus = upd.Status
	}
	if upd.Plan != nil {
		u.SubscriptionPlan = *upd.Plan
	}
	if upd.CustomerID != nil {
		u.StripeCustomerID = cloneString(upd.CustomerID)
	}
	if upd.SubscriptionID != nil {
		u.SubscriptionID = cloneString(upd.SubscriptionID)
	}
	u.UpdatedAt = s.now().UTC()
	s.users[id] = u
}

func cloneUser(u user.User) user.User {
	u.Name = cloneString(u.Name)
	u.StripeCustomerID = cloneString(u.StripeCustomerID)
	u.SubscriptionID = cloneString(u.SubscriptionID)
	return u
}

var _ user.Repository = (*UserRepository)(nil)
