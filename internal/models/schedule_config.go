package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleMode determines how session instances are derived from a config.
type ScheduleMode string

const (
	// ScheduleModeFixed produces a single session at the anchor time.
	ScheduleModeFixed ScheduleMode = "fixed"
	// ScheduleModeInterval produces sessions every IntervalMinutes from the anchor.
	ScheduleModeInterval ScheduleMode = "interval"
)

// Valid reports whether m is a known schedule mode.
func (m ScheduleMode) Valid() bool {
	return m == ScheduleModeFixed || m == ScheduleModeInterval
}

// ScheduleConfig is the per-webinar recurrence rule. Mutated only by admin
// configuration, which is outside this engine.
type ScheduleConfig struct {
	WebinarID       uuid.UUID    `json:"webinar_id"`
	Mode            ScheduleMode `json:"mode"`
	IntervalMinutes int          `json:"interval_minutes,omitempty"` // interval mode only
	AnchorTime      time.Time    `json:"anchor_time"`                // UTC instant
	Timezone        string       `json:"timezone"`                   // IANA name, for display scheduling
	HorizonDays     int          `json:"horizon_days"`               // how far ahead to materialize sessions
	UpdatedAt       time.Time    `json:"updated_at"`
}
