package memory

import (
	"sync"
	"time"

	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"

	"github.com/google/uuid"
)

// Store keeps users, sessions and QAs in process memory. A single mutex
// guards all tables so multi-table operations are atomic.
type Store struct {
	mu sync.Mutex

	users    map[uuid.UUID]user.User
	emails   map[string]uuid.UUID
	sessions map[uuid.UUID]session.Session
	qas      map[uuid.UUID][]session.QA

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]user.User),
		emails:   make(map[string]uuid.UUID),
		sessions: make(map[uuid.UUID]session.Session),
		qas:      make(map[uuid.UUID][]session.QA),
		now:      time.Now,
	}
}

// WithClock overrides the clock used for created_at/updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{store: s}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
