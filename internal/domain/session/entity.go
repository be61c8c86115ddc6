package session

import (
	"encoding/json"
	"math"
	"time"

	"quantprep/internal/domain/interview"

	"github.com/google/uuid"
)

type Status string

const (
	StatusSetup      Status = "setup"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Role       interview.Role
	RoundType  interview.RoundType
	Difficulty interview.Difficulty
	StartedAt  time.Time
	EndedAt    *time.Time
	Score      *int
	Feedback   json.RawMessage
}

func (s Session) IsCompleted() bool {
	return s.EndedAt != nil
}

func (s Session) Status() Status {
	if s.IsCompleted() {
		return StatusCompleted
	}
	return StatusInProgress
}

type QA struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Question   string
	Answer     *string
	AIScore    *int
	AIFeedback *string
	CreatedAt  time.Time
}

// Quota bounds how many sessions a user may start since a point in time.
// Limit <= 0 means unlimited.
type Quota struct {
	Since time.Time
	Limit int
}

func (q Quota) Unlimited() bool {
	return q.Limit <= 0
}

// AggregateScore is the mean of the scored QAs rounded half up. QAs without
// a score do not count; no scored QA yields 0.
func AggregateScore(qas []QA) int {
	sum := 0
	n := 0
	for _, qa := range qas {
		if qa.AIScore == nil {
			continue
		}
		sum += *qa.AIScore
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Floor(float64(sum)/float64(n) + 0.5))
}

// MonthStart returns the first instant of t's calendar month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyQuota is the start quota for the calendar month containing now.
// Paying users get an unlimited quota.
func MonthlyQuota(paying bool, limit int, now time.Time) Quota {
	if paying {
		return Quota{}
	}
	return Quota{Since: MonthStart(now), Limit: limit}
}

type CompletionReason string

const (
	ReasonFinished CompletionReason = "finished"
	ReasonTimeout  CompletionReason = "timeout"
	ReasonManual   CompletionReason = "manual"
)

// Summary is the feedback document stored on a completed session when the
// caller does not supply one.
type Summary struct {
	Completed    bool             `json:"completed"`
	AverageScore int              `json:"averageScore"`
	Answered     int              `json:"answered"`
	Total        int              `json:"total"`
	Reason       CompletionReason `json:"reason,omitempty"`
}
