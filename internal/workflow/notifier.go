package workflow

import (
	"quantprep/internal/domain/session"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventTick      EventType = "tick"
	EventAnswered  EventType = "answered"
	EventCompleted EventType = "completed"
)

type Event struct {
	Type             EventType                `json:"type"`
	SessionID        uuid.UUID                `json:"session_id"`
	Index            int                      `json:"index"`
	Total            int                      `json:"total"`
	RemainingSeconds int                      `json:"remaining_seconds"`
	Score            *int                     `json:"score,omitempty"`
	Reason           session.CompletionReason `json:"reason,omitempty"`
}

// Notifier fans interview events out to live subscribers. Publish must not
// block.
type Notifier interface {
	Publish(sessionID uuid.UUID, ev Event)
}

type NopNotifier struct{}

func (NopNotifier) Publish(uuid.UUID, Event) {}
