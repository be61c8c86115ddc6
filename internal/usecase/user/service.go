package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/internal/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")
	ErrInternal     = errors.New("internal error")
)

// Usage summarises the caller's monthly allowance and history.
type Usage struct {
	Plan              user.Plan               `json:"plan"`
	Status            user.SubscriptionStatus `json:"subscription_status"`
	Used              int                     `json:"sessions_used"`
	Limit             int                     `json:"sessions_limit"`
	Remaining         int                     `json:"sessions_remaining"`
	Unlimited         bool                    `json:"unlimited"`
	LimitReached      bool                    `json:"limit_reached"`
	UsagePercent      float64                 `json:"usage_percent"`
	TotalSessions     int                     `json:"total_sessions"`
	CompletedSessions int                     `json:"completed_sessions"`
	AverageScore      float64                 `json:"average_score"`
	ScoreBand         string                  `json:"score_band"`
	PeriodStart       time.Time               `json:"period_start"`
}

type Usecase interface {
	Resolve(ctx context.Context, email string, name *string) (user.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (user.User, error)
	Usage(ctx context.Context, userID uuid.UUID) (Usage, error)
}

type Service struct {
	users     user.Repository
	sessions  session.Repository
	freeLimit int
	now       func() time.Time
}

func NewService(users user.Repository, sessions session.Repository, freeLimit int) *Service {
	return &Service{users: users, sessions: sessions, freeLimit: freeLimit, now: time.Now}
}

// Resolve returns the user registered under email, creating a free-tier
// account on first sight.
func (s *Service) Resolve(ctx context.Context, email string, name *string) (user.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			name = nil
		} else {
			name = &n
		}
	}

	u, err = s.users.Create(ctx, user.User{
		Email:              email,
		Name:               name,
		SubscriptionStatus: user.StatusFree,
		SubscriptionPlan:   user.PlanFree,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			// lost a concurrent first sign-in
			if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil {
				return existing, nil
			}
		}
		return user.User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return u, nil
}

func (s *Service) Usage(ctx context.Context, userID uuid.UUID) (Usage, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return Usage{}, err
	}

	now := s.now()
	q := session.MonthlyQuota(u.IsPaying(), s.freeLimit, now)

	list, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return Usage{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	out := Usage{
		Plan:          u.SubscriptionPlan,
		Status:        u.SubscriptionStatus,
		Unlimited:     q.Unlimited(),
		TotalSessions: len(list),
		PeriodStart:   session.MonthStart(now),
	}

	sum, scored := 0, 0
	for _, sess := range list {
		if !sess.StartedAt.Before(out.PeriodStart) {
			out.Used++
		}
		if sess.IsCompleted() {
			out.CompletedSessions++
		}
		if sess.Score != nil {
			sum += *sess.Score
			scored++
		}
	}
	if scored > 0 {
		out.AverageScore = float64(int(float64(sum)/float64(scored)*10+0.5)) / 10
		out.ScoreBand = interview.ScoreBand(out.AverageScore)
	}

	if !out.Unlimited {
		out.Limit = q.Limit
		out.Remaining = q.Limit - out.Used
		if out.Remaining < 0 {
			out.Remaining = 0
		}
		out.LimitReached = out.Used >= q.Limit
		out.UsagePercent = float64(out.Used) / float64(q.Limit) * 100
		if out.UsagePercent > 100 {
			out.UsagePercent = 100
		}
	}
	return out, nil
}

// NormalizeEmail lower-cases and validates a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if err := validator.Default().Var("email", email, "email"); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return email, nil
}

var _ Usecase = (*Service)(nil)
