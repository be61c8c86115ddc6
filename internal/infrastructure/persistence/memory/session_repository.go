package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"quantprep/internal/domain/session"

	"github.com/google/uuid"
)

type SessionRepository struct {
	store *Store
}

func (r *SessionRepository) CreateWithQuota(_ context.Context, sess session.Session, q session.Quota) (session.Session, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !q.Unlimited() && s.countStartedSince(sess.UserID, q.Since) >= q.Limit {
		return session.Session{}, session.ErrQuotaExceeded
	}

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.now().UTC()
	}
	sess.EndedAt = nil
	sess.Score = nil
	s.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

func (r *SessionRepository) GetByID(_ context.Context, id uuid.UUID) (session.Session, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]session.Session, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]session.Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, cloneSession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *SessionRepository) CountStartedSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countStartedSince(userID, since), nil
}

func (r *SessionRepository) AppendQA(_ context.Context, qa session.QA, maxPerSession int) (session.QA, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[qa.SessionID]
	if !ok {
		return session.QA{}, session.ErrNotFound
	}
	if sess.IsCompleted() {
		return session.QA{}, session.ErrClosed
	}
	if maxPerSession > 0 && len(s.qas[qa.SessionID]) >= maxPerSession {
		return session.QA{}, session.ErrQuestionLimit
	}

	if qa.ID == uuid.Nil {
		qa.ID = uuid.New()
	}
	qa.CreatedAt = s.now().UTC()
	s.qas[qa.SessionID] = append(s.qas[qa.SessionID], qa)
	return cloneQA(qa), nil
}

func (r *SessionRepository) ListQAs(_ context.Context, sessionID uuid.UUID) ([]session.QA, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, session.ErrNotFound
	}
	src := s.qas[sessionID]
	out := make([]session.QA, 0, len(src))
	for _, qa := range src {
		out = append(out, cloneQA(qa))
	}
	return out, nil
}

func (r *SessionRepository) Complete(_ context.Context, id uuid.UUID, endedAt time.Time, feedback json.RawMessage) (session.Session, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if sess.IsCompleted() {
		return cloneSession(sess), nil
	}

	score := session.AggregateScore(s.qas[id])
	ended := endedAt.UTC()
	sess.EndedAt = &ended
	sess.Score = &score
	if len(feedback) > 0 {
		sess.Feedback = append(json.RawMessage(nil), feedback...)
	}
	s.sessions[id] = sess
	return cloneSession(sess), nil
}

// countStartedSince must be called with s.mu held.
func (s *Store) countStartedSince(userID uuid.UUID, since time.Time) int {
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID && !sess.StartedAt.Before(since) {
			n++
		}
	}
	return n
}

func cloneSession(sess session.Session) session.Session {
	sess.EndedAt = cloneTime(sess.EndedAt)
	sess.Score = cloneInt(sess.Score)
	if sess.Feedback != nil {
		sess.Feedback = append(json.RawMessage(nil), sess.Feedback...)
	}
	return sess
}

func cloneQA(qa session.QA) session.QA {
	qa.Answer = cloneString(qa.Answer)
	qa.AIScore = cloneInt(qa.AIScore)
	qa.AIFeedback = cloneString(qa.AIFeedback)
	return qa
}

var _ session.Repository = (*SessionRepository)(nil)
