package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/internal/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("session not found")
	ErrQuotaExceeded = errors.New("session quota exceeded")
	ErrClosed        = errors.New("session already completed")
	ErrQuestionLimit = errors.New("session question limit reached")
	ErrInternal      = errors.New("internal error")
)

// QuotaMessage is shown to free-tier users who hit the monthly limit.
const QuotaMessage = "Free plan limit reached. Upgrade to Pro for unlimited sessions."

// QuotaError carries the allowance figures behind ErrQuotaExceeded.
type QuotaError struct {
	Limit int
	Used  int
}

func (e *QuotaError) Error() string {
	return ErrQuotaExceeded.Error()
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

type CreateInput struct {
	UserID     uuid.UUID
	Role       string
	RoundType  string
	Difficulty string
}

type SaveQAInput struct {
	SessionID  uuid.UUID
	Question   string
	Answer     *string
	AIScore    *int
	AIFeedback *string
}

type CompleteInput struct {
	SessionID uuid.UUID
	// Score is the caller's own aggregate. The stored score is always
	// recomputed from the persisted QAs.
	Score    *int
	Feedback json.RawMessage
	Reason   session.CompletionReason
}

type Detail struct {
	Session session.Session
	QAs     []session.QA
}

type Usecase interface {
	Create(ctx context.Context, in CreateInput) (session.Session, error)
	SaveQA(ctx context.Context, userID uuid.UUID, in SaveQAInput) (session.QA, error)
	Complete(ctx context.Context, userID uuid.UUID, in CompleteInput) (session.Session, error)
	List(ctx context.Context, userID uuid.UUID) ([]session.Session, error)
	Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (Detail, error)
	Report(ctx context.Context, userID uuid.UUID, id uuid.UUID) (string, error)
}

type Config struct {
	QuestionCount           int
	FreeMonthlySessionLimit int
}

type Service struct {
	users    user.Repository
	sessions session.Repository
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

func NewService(users user.Repository, sessions session.Repository, cfg Config, log *logger.Logger) *Service {
	return &Service{users: users, sessions: sessions, cfg: cfg, log: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (session.Session, error) {
	setup, err := interview.ParseSetup(in.Role, in.RoundType, in.Difficulty)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return session.Session{}, fmt.Errorf("%w: unknown user", ErrInvalidInput)
		}
		return session.Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := s.now().UTC()
	q := session.MonthlyQuota(u.IsPaying(), s.cfg.FreeMonthlySessionLimit, now)

	created, err := s.sessions.CreateWithQuota(ctx, session.Session{
		UserID:     u.ID,
		Role:       setup.Role,
		RoundType:  setup.RoundType,
		Difficulty: setup.Difficulty,
		StartedAt:  now,
	}, q)
	if err != nil {
		if errors.Is(err, session.ErrQuotaExceeded) {
			used, cErr := s.sessions.CountStartedSince(ctx, u.ID, q.Since)
			if cErr != nil {
				used = q.Limit
			}
			s.log.Info("session quota exceeded", "user_id", u.ID, "used", used, "limit", q.Limit)
			return session.Session{}, &QuotaError{Limit: q.Limit, Used: used}
		}
		return session.Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.log.Info("session created", "session_id", created.ID, "user_id", u.ID, "role", created.Role, "round_type", created.RoundType, "difficulty", created.Difficulty)
	return created, nil
}

func (s *Service) SaveQA(ctx context.Context, userID uuid.UUID, in SaveQAInput) (session.QA, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return session.QA{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if in.AIScore != nil && (*in.AIScore < interview.MinScore || *in.AIScore > interview.MaxScore) {
		return session.QA{}, fmt.Errorf("%w: aiScore must be between %d and %d", ErrInvalidInput, interview.MinScore, interview.MaxScore)
	}
	if _, err := s.owned(ctx, userID, in.SessionID); err != nil {
		return session.QA{}, err
	}

	qa, err := s.sessions.AppendQA(ctx, session.QA{
		SessionID:  in.SessionID,
		Question:   question,
		Answer:     in.Answer,
		AIScore:    in.AIScore,
		AIFeedback: in.AIFeedback,
	}, s.cfg.QuestionCount)
	if err != nil {
		return session.QA{}, mapRepoError(err)
	}
	return qa, nil
}

func (s *Service) Complete(ctx context.Context, userID uuid.UUID, in CompleteInput) (session.Session, error) {
	if len(in.Feedback) > 0 && !json.Valid(in.Feedback) {
		return session.Session{}, fmt.Errorf("%w: feedback must be valid JSON", ErrInvalidInput)
	}
	cur, err := s.owned(ctx, userID, in.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	if cur.IsCompleted() {
		return cur, nil
	}

	qas, err := s.sessions.ListQAs(ctx, in.SessionID)
	if err != nil {
		return session.Session{}, mapRepoError(err)
	}
	score := session.AggregateScore(qas)

	feedback := in.Feedback
	if len(feedback) == 0 {
		reason := in.Reason
		if reason == "" {
			reason = session.ReasonManual
		}
		feedback, err = json.Marshal(session.Summary{
			Completed:    true,
			AverageScore: score,
			Answered:     len(qas),
			Total:        s.cfg.QuestionCount,
			Reason:       reason,
		})
		if err != nil {
			return session.Session{}, fmt.Errorf("%w: %v", ErrInternal, err)
		}
	}

	done, err := s.sessions.Complete(ctx, in.SessionID, s.now(), feedback)
	if err != nil {
		return session.Session{}, mapRepoError(err)
	}
	if in.Score != nil && done.Score != nil && *in.Score != *done.Score {
		s.log.Warn("client score differs from stored aggregate", "session_id", done.ID, "client_score", *in.Score, "stored_score", *done.Score)
	}
	s.log.Info("session completed", "session_id", done.ID, "score", done.Score, "answered", len(qas))
	return done, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]session.Session, error) {
	list, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (Detail, error) {
	sess, err := s.owned(ctx, userID, id)
	if err != nil {
		return Detail{}, err
	}
	qas, err := s.sessions.ListQAs(ctx, id)
	if err != nil {
		return Detail{}, mapRepoError(err)
	}
	return Detail{Session: sess, QAs: qas}, nil
}

func (s *Service) Report(ctx context.Context, userID uuid.UUID, id uuid.UUID) (string, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	return RenderReport(d), nil
}

// owned loads a session and hides sessions of other users behind
// ErrNotFound.
func (s *Service) owned(ctx context.Context, userID uuid.UUID, id uuid.UUID) (session.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return session.Session{}, mapRepoError(err)
	}
	if sess.UserID != userID {
		return session.Session{}, ErrNotFound
	}
	return sess, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, session.ErrClosed):
		return ErrClosed
	case errors.Is(err, session.ErrQuestionLimit):
		return ErrQuestionLimit
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

var _ Usecase = (*Service)(nil)
