package dto

import (
	"encoding/json"
	"time"

	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"

	"github.com/google/uuid"
)

type SessionResponse struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	Role       interview.Role       `json:"role"`
	RoundType  interview.RoundType  `json:"round_type"`
	Difficulty interview.Difficulty `json:"difficulty"`
	Status     session.Status       `json:"status"`
	StartedAt  time.Time            `json:"started_at"`
	EndedAt    *time.Time           `json:"ended_at"`
	Score      *int                 `json:"score"`
	Feedback   json.RawMessage      `json:"feedback"`
}

type QAResponse struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	Question   string    `json:"question"`
	Answer     *string   `json:"answer"`
	AIScore    *int      `json:"ai_score"`
	AIFeedback *string   `json:"ai_feedback"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionDetailResponse struct {
	Session SessionResponse `json:"session"`
	QAs     []QAResponse    `json:"qas"`
}

func NewSessionResponse(s session.Session) SessionResponse {
	fb := s.Feedback
	if len(fb) == 0 {
		fb = json.RawMessage("null")
	}
	return SessionResponse{
		ID:         s.ID,
		UserID:     s.UserID,
		Role:       s.Role,
		RoundType:  s.RoundType,
		Difficulty: s.Difficulty,
		Status:     s.Status(),
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		Score:      s.Score,
		Feedback:   fb,
	}
}

func NewSessionListResponse(list []session.Session) []SessionResponse {
	out := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewSessionResponse(s))
	}
	return out
}

func NewQAResponse(qa session.QA) QAResponse {
	return QAResponse{
		ID:         qa.ID,
		SessionID:  qa.SessionID,
		Question:   qa.Question,
		Answer:     qa.Answer,
		AIScore:    qa.AIScore,
		AIFeedback: qa.AIFeedback,
		CreatedAt:  qa.CreatedAt,
	}
}

func NewSessionDetailResponse(s session.Session, qas []session.QA) SessionDetailResponse {
	out := SessionDetailResponse{Session: NewSessionResponse(s), QAs: make([]QAResponse, 0, len(qas))}
	for _, qa := range qas {
		out.QAs = append(out.QAs, NewQAResponse(qa))
	}
	return out
}
