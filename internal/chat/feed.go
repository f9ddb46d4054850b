// Package chat serves scripted chat lines for evergreen sessions, windowed
// by playback-time offsets so the transcript appears to arrive live.
package chat

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/access"
	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
)

// ScriptStore reads author-defined chat script entries.
type ScriptStore interface {
	// ListWindow returns entries with appears_at in (from, to], ordered by
	// appears_at then id.
	ListWindow(ctx context.Context, webinarID uuid.UUID, from, to int) ([]models.ChatScriptEntry, error)
}

// Feed serves chat script windows.
type Feed struct {
	store  ScriptStore
	clock  clock.Clock
	logger *zap.Logger
}

// NewFeed creates a chat simulation feed.
func NewFeed(store ScriptStore, clk clock.Clock, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{store: store, clock: clk, logger: logger}
}

// FetchWindow returns script entries in (from, to]. Identical ranges return
// identical results so clients can retry and append incrementally. An
// inverted range returns an empty list rather than erroring.
func (f *Feed) FetchWindow(ctx context.Context, webinarID uuid.UUID, from, to int) ([]models.ChatScriptEntry, error) {
	if to < from {
		return []models.ChatScriptEntry{}, nil
	}
	entries, err := f.store.ListWindow(ctx, webinarID, from, to)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ChatScriptEntry{}
	}
	return entries, nil
}

// FetchForRegistration serves the window for a registrant's session. Live
// sessions use the external real-time relay, not this feed, and a session
// that has not started serves nothing. Before the session ends the window is
// capped at the virtual live playhead so future chat never leaks.
func (f *Feed) FetchForRegistration(ctx context.Context, sess *models.Session, reg *models.Registration, from, to int) ([]models.ChatScriptEntry, error) {
	if sess.Kind != models.WebinarKindEvergreen {
		return []models.ChatScriptEntry{}, nil
	}
	d := access.Evaluate(sess, reg, f.clock.Now(), access.Policy{})
	switch d.State {
	case access.StateNotStarted, access.StateMissed:
		return []models.ChatScriptEntry{}, nil
	}
	if d.HasCeiling && to > d.AllowedCeiling {
		to = d.AllowedCeiling
	}
	return f.FetchWindow(ctx, sess.WebinarID, from, to)
}
