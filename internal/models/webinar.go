package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarKind determines how sessions of a webinar are run.
type WebinarKind string

const (
	// WebinarKindLive is a genuinely live broadcast at a fixed date.
	WebinarKindLive WebinarKind = "live"
	// WebinarKindEvergreen replays a recording on a recurring timetable,
	// presented to each viewer as if it were live.
	WebinarKindEvergreen WebinarKind = "evergreen"
)

// Valid reports whether k is a known webinar kind.
func (k WebinarKind) Valid() bool {
	return k == WebinarKindLive || k == WebinarKindEvergreen
}

// Webinar is the content a session plays: title, duration and video object.
type Webinar struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Kind            WebinarKind `json:"kind"`
	DurationSeconds int         `json:"duration_seconds"`
	VideoKey        string      `json:"video_key,omitempty"` // S3 object key of the recording
	IsActive        bool        `json:"is_active"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
