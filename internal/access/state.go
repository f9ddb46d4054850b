// Package access computes a viewer's relationship to a session: the core
// state machine behind the simulated-live illusion. Evaluate is a pure
// function of (session, registration, now) and performs no I/O.
package access

import (
	"time"

	"github.com/evergreenlive/backend/internal/models"
)

// State is the viewer's current access phase.
type State string

const (
	// StateNotStarted: the session has not begun; no video or chat yet.
	StateNotStarted State = "not_started"
	// StateLiveWatching: the viewer may consume video up to the allowed ceiling.
	StateLiveWatching State = "live_watching"
	// StateCaughtUpWaiting: the viewer reached the virtual live edge of an
	// evergreen session and must wait for the playhead to advance.
	StateCaughtUpWaiting State = "caught_up_waiting"
	// StateEndedReplayAvailable: the session ended and full scrubbing is allowed.
	StateEndedReplayAvailable State = "ended_replay_available"
	// StateMissed: a live session ended without the registrant attending, or
	// its replay window closed.
	StateMissed State = "missed"
)

// Policy holds operator-configured access rules.
type Policy struct {
	// LiveReplayGrace bounds how long the replay of a live session stays
	// available after it ends. Zero means the replay never expires.
	LiveReplayGrace time.Duration
}

// Decision is the result of evaluating the state machine.
type Decision struct {
	State          State `json:"state"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
	// AllowedCeiling is the furthest playback position currently permitted,
	// valid only when HasCeiling is true (evergreen sessions before their end).
	AllowedCeiling int  `json:"allowed_ceiling,omitempty"`
	HasCeiling     bool `json:"-"`
}

// Evaluate computes the access state for a registration at instant now.
// Repeated calls at non-decreasing now never regress through the sequence
// NOT_STARTED -> (LIVE_WATCHING <-> CAUGHT_UP_WAITING)* -> ENDED_REPLAY_AVAILABLE;
// MISSED is the independent terminal branch for live sessions.
func Evaluate(sess *models.Session, reg *models.Registration, now time.Time, p Policy) Decision {
	elapsed := int(now.Sub(sess.ScheduledAt) / time.Second)
	if elapsed < 0 {
		return Decision{State: StateNotStarted}
	}
	dur := sess.DurationSeconds

	if sess.Kind == models.WebinarKindLive {
		if elapsed <= dur {
			return Decision{State: StateLiveWatching, ElapsedSeconds: elapsed}
		}
		if !reg.Attended() {
			return Decision{State: StateMissed, ElapsedSeconds: elapsed}
		}
		if grace := int(p.LiveReplayGrace / time.Second); grace > 0 && elapsed > dur+grace {
			return Decision{State: StateMissed, ElapsedSeconds: elapsed}
		}
		return Decision{State: StateEndedReplayAvailable, ElapsedSeconds: elapsed}
	}

	// Evergreen: the virtual live playhead advances with wall-clock time.
	if elapsed >= dur {
		return Decision{State: StateEndedReplayAvailable, ElapsedSeconds: elapsed}
	}
	ceiling := elapsed
	if reg.MaxVideoPosition >= ceiling {
		return Decision{State: StateCaughtUpWaiting, ElapsedSeconds: elapsed, AllowedCeiling: ceiling, HasCeiling: true}
	}
	return Decision{State: StateLiveWatching, ElapsedSeconds: elapsed, AllowedCeiling: ceiling, HasCeiling: true}
}
