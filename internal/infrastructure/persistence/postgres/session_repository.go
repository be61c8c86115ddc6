package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quantprep/internal/database"
	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, user_id, role, round_type, difficulty, started_at, ended_at, score, feedback`

const qaColumns = `id, session_id, question, answer, ai_score, ai_feedback, created_at`

type SessionRepository struct {
	db database.DB
}

func NewSessionRepository(db database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithQuota serializes concurrent starts for the same user by locking
// the user row before counting.
func (r *SessionRepository) CreateWithQuota(ctx context.Context, sess session.Session, q session.Quota) (session.Session, error) {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	var out session.Session
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, sess.UserID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return user.ErrNotFound
			}
			return err
		}

		if !q.Unlimited() {
			var used int
			if err := tx.QueryRow(
				ctx,
				`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND started_at >= $2`,
				sess.UserID, q.Since,
			).Scan(&used); err != nil {
				return err
			}
			if used >= q.Limit {
				return session.ErrQuotaExceeded
			}
		}

		row := tx.QueryRow(
			ctx,
			`INSERT INTO sessions (id, user_id, role, round_type, difficulty, started_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+sessionColumns,
			sess.ID,
			sess.UserID,
			string(sess.Role),
			string(sess.RoundType),
			string(sess.Difficulty),
			sess.StartedAt.UTC(),
		)
		var err error
		out, err = scanSession(row)
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	return out, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (session.Session, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]session.Session, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY started_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]session.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepository) CountStartedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND started_at >= $2`,
		userID, since,
	).Scan(&n)
	return n, err
}

func (r *SessionRepository) AppendQA(ctx context.Context, qa session.QA, maxPerSession int) (session.QA, error) {
	if qa.ID == uuid.Nil {
		qa.ID = uuid.New()
	}

	var out session.QA
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		var endedAt *time.Time
		if err := tx.QueryRow(ctx, `SELECT ended_at FROM sessions WHERE id = $1 FOR UPDATE`, qa.SessionID).Scan(&endedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return session.ErrNotFound
			}
			return err
		}
		if endedAt != nil {
			return session.ErrClosed
		}

		if maxPerSession > 0 {
			var n int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM qas WHERE session_id = $1`, qa.SessionID).Scan(&n); err != nil {
				return err
			}
			if n >= maxPerSession {
				return session.ErrQuestionLimit
			}
		}

		row := tx.QueryRow(
			ctx,
			`INSERT INTO qas (id, session_id, question, answer, ai_score, ai_feedback, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+qaColumns,
			qa.ID,
			qa.SessionID,
			qa.Question,
			qa.Answer,
			qa.AIScore,
			qa.AIFeedback,
			time.Now().UTC(),
		)
		var err error
		out, err = scanQA(row)
		return err
	})
	if err != nil {
		return session.QA{}, err
	}
	return out, nil
}

func (r *SessionRepository) ListQAs(ctx context.Context, sessionID uuid.UUID) ([]session.QA, error) {
	if _, err := r.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return listQAs(ctx, r.db, sessionID)
}

func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, endedAt time.Time, feedback json.RawMessage) (session.Session, error) {
	var out session.Session
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		cur, err := scanSession(tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if cur.IsCompleted() {
			out = cur
			return nil
		}

		qas, err := listQAs(ctx, tx, id)
		if err != nil {
			return err
		}
		score := session.AggregateScore(qas)

		var fb any
		if len(feedback) > 0 {
			fb = string(feedback)
		}
		out, err = scanSession(tx.QueryRow(
			ctx,
			`UPDATE sessions SET ended_at = $2, score = $3, feedback = COALESCE($4::jsonb, feedback)
			WHERE id = $1
			RETURNING `+sessionColumns,
			id, endedAt.UTC(), score, fb,
		))
		return err
	})
	if err != nil {
		return session.Session{}, err
	}
	return out, nil
}

func listQAs(ctx context.Context, q database.Querier, sessionID uuid.UUID) ([]session.QA, error) {
	rows, err := q.Query(ctx, `SELECT `+qaColumns+` FROM qas WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]session.QA, 0)
	for rows.Next() {
		qa, err := scanQA(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qa)
	}
	return out, rows.Err()
}

func scanSession(row database.Row) (session.Session, error) {
	var s session.Session
	var role, roundType, difficulty string
	var feedback []byte
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&role,
		&roundType,
		&difficulty,
		&s.StartedAt,
		&s.EndedAt,
		&s.Score,
		&feedback,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, err
	}
	s.Role = interview.Role(role)
	s.RoundType = interview.RoundType(roundType)
	s.Difficulty = interview.Difficulty(difficulty)
	if len(feedback) > 0 {
		s.Feedback = json.RawMessage(feedback)
	}
	return s, nil
}

func scanQA(row database.Row) (session.QA, error) {
	var qa session.QA
	if err := row.Scan(
		&qa.ID,
		&qa.SessionID,
		&qa.Question,
		&qa.Answer,
		&qa.AIScore,
		&qa.AIFeedback,
		&qa.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.QA{}, session.ErrNotFound
		}
		return session.QA{}, err
	}
	return qa, nil
}

var _ session.Repository = (*SessionRepository)(nil)
