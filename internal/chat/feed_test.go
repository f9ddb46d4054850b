package chat

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
)

type memScriptStore struct {
	entries []models.ChatScriptEntry
	calls   int
}

func (m *memScriptStore) ListWindow(_ context.Context, webinarID uuid.UUID, from, to int) ([]models.ChatScriptEntry, error) {
	m.calls++
	var out []models.ChatScriptEntry
	for _, e := range m.entries {
		if e.WebinarID == webinarID && e.AppearsAt > from && e.AppearsAt <= to {
			out = append(out, e)
		}
	}
	return out, nil
}

func scriptFixture(webinarID uuid.UUID) []models.ChatScriptEntry {
	return []models.ChatScriptEntry{
		{ID: 1, WebinarID: webinarID, SenderName: "Host", Message: "welcome everyone", AppearsAt: 10, IsFromModerator: true},
		{ID: 2, WebinarID: webinarID, SenderName: "Priya", Message: "hi from Austin", AppearsAt: 45},
		{ID: 3, WebinarID: webinarID, SenderName: "Marcus", Message: "audio is great", AppearsAt: 45},
		{ID: 4, WebinarID: webinarID, SenderName: "Host", Message: "starting the demo", AppearsAt: 120, IsFromModerator: true},
	}
}

func TestFeed_FetchWindow_deterministic(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	feed := NewFeed(store, clock.NewFake(time.Now()), nil)
	ctx := context.Background()

	var prev []models.ChatScriptEntry
	for i := 0; i < 3; i++ {
		got, err := feed.FetchWindow(ctx, webinarID, 0, 60)
		if err != nil {
			t.Fatalf("FetchWindow: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d entries, want 3", len(got))
		}
		if prev != nil && !reflect.DeepEqual(got, prev) {
			t.Fatal("identical windows returned different results")
		}
		prev = got
	}
}

func TestFeed_FetchWindow_bounds(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	feed := NewFeed(store, clock.NewFake(time.Now()), nil)
	ctx := context.Background()

	// Exclusive lower bound: an entry exactly at `from` was already served.
	got, err := feed.FetchWindow(ctx, webinarID, 45, 120)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 1 || got[0].ID != 4 {
		t.Errorf("window (45,120] = %+v, want only the demo entry", got)
	}

	// Inclusive upper bound.
	got, err = feed.FetchWindow(ctx, webinarID, 0, 45)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("window (0,45] has %d entries, want 3", len(got))
	}
}

func TestFeed_FetchWindow_inverted_range_is_empty(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	feed := NewFeed(store, clock.NewFake(time.Now()), nil)

	got, err := feed.FetchWindow(context.Background(), webinarID, 100, 50)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("inverted range returned %d entries, want 0", len(got))
	}
	if store.calls != 0 {
		t.Error("inverted range should not hit the store")
	}
}

func TestFeed_FetchForRegistration_clamps_to_playhead(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	// 50 seconds into the broadcast: entry at 120 must not leak.
	feed := NewFeed(store, clock.NewFake(start.Add(50*time.Second)), nil)

	sess := &models.Session{
		ID:              uuid.New(),
		WebinarID:       webinarID,
		ScheduledAt:     start,
		Kind:            models.WebinarKindEvergreen,
		DurationSeconds: 3600,
	}
	reg := &models.Registration{ID: uuid.New(), WebinarID: webinarID, SessionID: sess.ID}

	got, err := feed.FetchForRegistration(context.Background(), sess, reg, 0, 600)
	if err != nil {
		t.Fatalf("FetchForRegistration: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3 (future chat leaked)", len(got))
	}
	for _, e := range got {
		if e.AppearsAt > 50 {
			t.Errorf("entry at offset %d served before its time", e.AppearsAt)
		}
	}
}

func TestFeed_FetchForRegistration_empty_cases(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	newSess := func(kind models.WebinarKind) *models.Session {
		return &models.Session{
			ID:              uuid.New(),
			WebinarID:       webinarID,
			ScheduledAt:     start,
			Kind:            kind,
			DurationSeconds: 3600,
		}
	}
	reg := &models.Registration{ID: uuid.New(), WebinarID: webinarID}

	tests := []struct {
		name string
		sess *models.Session
		now  time.Time
	}{
		{"live session uses the relay instead", newSess(models.WebinarKindLive), start.Add(10 * time.Minute)},
		{"session not started", newSess(models.WebinarKindEvergreen), start.Add(-10 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := NewFeed(store, clock.NewFake(tt.now), nil)
			got, err := feed.FetchForRegistration(context.Background(), tt.sess, reg, 0, 600)
			if err != nil {
				t.Fatalf("FetchForRegistration: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("got %d entries, want none", len(got))
			}
		})
	}
}

func TestFeed_FetchForRegistration_full_window_after_end(t *testing.T) {
	webinarID := uuid.New()
	store := &memScriptStore{entries: scriptFixture(webinarID)}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	feed := NewFeed(store, clock.NewFake(start.Add(2*time.Hour)), nil)

	sess := &models.Session{
		ID:              uuid.New(),
		WebinarID:       webinarID,
		ScheduledAt:     start,
		Kind:            models.WebinarKindEvergreen,
		DurationSeconds: 3600,
	}
	reg := &models.Registration{ID: uuid.New(), WebinarID: webinarID, SessionID: sess.ID}

	got, err := feed.FetchForRegistration(context.Background(), sess, reg, 0, 3600)
	if err != nil {
		t.Fatalf("FetchForRegistration: %v", err)
	}
	if len(got) != len(store.entries) {
		t.Errorf("replay window has %d entries, want all %d", len(got), len(store.entries))
	}
}
