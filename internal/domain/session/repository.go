package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrQuotaExceeded = errors.New("session quota exceeded")
	ErrClosed        = errors.New("session already completed")
	ErrQuestionLimit = errors.New("session question limit reached")
)

type Repository interface {
	// CreateWithQuota counts the user's sessions started since q.Since and
	// inserts s only when the count is below q.Limit, atomically.
	CreateWithQuota(ctx context.Context, s Session, q Quota) (Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (Session, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error)
	CountStartedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)

	// AppendQA inserts qa unless the session is completed or already holds
	// maxPerSession QAs.
	AppendQA(ctx context.Context, qa QA, maxPerSession int) (QA, error)
	ListQAs(ctx context.Context, sessionID uuid.UUID) ([]QA, error)

	// Complete closes the session with AggregateScore of its QAs. Completing
	// a closed session returns it unchanged.
	Complete(ctx context.Context, id uuid.UUID, endedAt time.Time, feedback json.RawMessage) (Session, error)
}
