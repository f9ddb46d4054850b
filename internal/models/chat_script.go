package models

import "github.com/google/uuid"

// ChatScriptEntry is one author-defined chat line replayed during evergreen
// sessions. AppearsAt is an offset in seconds from session start, not a
// wall-clock time. Read-only to this engine.
type ChatScriptEntry struct {
	ID              int64     `json:"id"`
	WebinarID       uuid.UUID `json:"webinar_id"`
	SenderName      string    `json:"sender_name"`
	Message         string    `json:"message"`
	AppearsAt       int       `json:"appears_at"`
	IsFromModerator bool      `json:"is_from_moderator"`
}
