package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration binds an attendee to one session of a webinar.
// MaxVideoPosition only ever grows; it is the furthest playback point the
// viewer has been allowed to reach.
type Registration struct {
	ID               uuid.UUID  `json:"id"`
	WebinarID        uuid.UUID  `json:"webinar_id"`
	SessionID        uuid.UUID  `json:"session_id"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	AccessToken      string     `json:"-"` // opaque credential, never serialized
	MaxVideoPosition int        `json:"max_video_position"`
	AttendedAt       *time.Time `json:"attended_at,omitempty"`
	RegisteredAt     time.Time  `json:"registered_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Attended reports whether the registrant has ever joined the session.
func (r *Registration) Attended() bool {
	return r.AttendedAt != nil
}
