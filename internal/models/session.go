package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one concrete occurrence of a webinar. Immutable once created;
// unique on (webinar_id, scheduled_at). Rescheduling creates a new session.
type Session struct {
	ID              uuid.UUID   `json:"id"`
	WebinarID       uuid.UUID   `json:"webinar_id"`
	ScheduledAt     time.Time   `json:"scheduled_at"` // UTC instant
	Kind            WebinarKind `json:"kind"`
	DurationSeconds int         `json:"duration_seconds"`
	CreatedAt       time.Time   `json:"created_at"`
}

// EndsAt returns the instant the session's broadcast finishes.
func (s *Session) EndsAt() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.DurationSeconds) * time.Second)
}
