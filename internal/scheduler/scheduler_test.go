package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
)

type memSessionStore struct {
	byKey map[string]*models.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{byKey: make(map[string]*models.Session)}
}

func key(webinarID uuid.UUID, at time.Time) string {
	return webinarID.String() + "|" + at.UTC().Format(time.RFC3339)
}

func (m *memSessionStore) InsertIfAbsent(_ context.Context, s *models.Session) (bool, error) {
	k := key(s.WebinarID, s.ScheduledAt)
	if _, ok := m.byKey[k]; ok {
		return false, nil
	}
	cp := *s
	cp.ID = uuid.New()
	m.byKey[k] = &cp
	return true, nil
}

type memConfigSource struct {
	webinars []models.Webinar
	configs  []models.ScheduleConfig
}

func (m *memConfigSource) ListActive(_ context.Context) ([]models.Webinar, []models.ScheduleConfig, error) {
	return m.webinars, m.configs, nil
}

func testWebinar(kind models.WebinarKind) *models.Webinar {
	return &models.Webinar{
		ID:              uuid.New(),
		Title:           "Growth Masterclass",
		Kind:            kind,
		DurationSeconds: 3600,
		IsActive:        true,
	}
}

func intervalConfig(webinarID uuid.UUID, anchor time.Time, intervalMin, horizonDays int) *models.ScheduleConfig {
	return &models.ScheduleConfig{
		WebinarID:       webinarID,
		Mode:            models.ScheduleModeInterval,
		IntervalMinutes: intervalMin,
		AnchorTime:      anchor,
		Timezone:        "UTC",
		HorizonDays:     horizonDays,
	}
}

func TestOccurrences_interval_exact_coverage(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := anchor.Add(30 * time.Minute)
	cfg := intervalConfig(uuid.New(), anchor, 120, 1)

	times, err := Occurrences(cfg, now, 30)
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	// First occurrence at or after now is anchor+2h; last inside now+24h is anchor+24h.
	if len(times) != 12 {
		t.Fatalf("got %d occurrences, want 12", len(times))
	}
	horizonEnd := now.Add(24 * time.Hour)
	for i, tm := range times {
		want := anchor.Add(time.Duration(i+1) * 2 * time.Hour)
		if !tm.Equal(want) {
			t.Errorf("times[%d] = %s, want %s", i, tm, want)
		}
		if tm.Before(now) || tm.After(horizonEnd) {
			t.Errorf("times[%d] = %s outside [now, now+24h]", i, tm)
		}
	}
}

func TestOccurrences_anchor_in_future(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := now.Add(6 * time.Hour)
	cfg := intervalConfig(uuid.New(), anchor, 720, 1)

	times, err := Occurrences(cfg, now, 30)
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(times) == 0 || !times[0].Equal(anchor) {
		t.Fatalf("first occurrence should be the anchor itself, got %v", times)
	}
}

func TestOccurrences_old_anchor_starts_at_now(t *testing.T) {
	// A webinar running for years must not generate past instants.
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := now.AddDate(-3, 0, 0)
	cfg := intervalConfig(uuid.New(), anchor, 180, 2)

	times, err := Occurrences(cfg, now, 30)
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(times) == 0 {
		t.Fatal("expected occurrences inside the horizon")
	}
	if times[0].Before(now) {
		t.Errorf("first occurrence %s is before now", times[0])
	}
	if got := times[0].Sub(now); got >= 3*time.Hour {
		t.Errorf("first occurrence is %s after now, want < one interval", got)
	}
}

func TestOccurrences_invalid_configs(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		cfg  *models.ScheduleConfig
	}{
		{"unknown mode", &models.ScheduleConfig{Mode: "weekly", AnchorTime: anchor, HorizonDays: 1}},
		{"zero anchor", &models.ScheduleConfig{Mode: models.ScheduleModeFixed, HorizonDays: 1}},
		{"zero interval", intervalConfig(uuid.New(), anchor, 0, 1)},
		{"no horizon", &models.ScheduleConfig{Mode: models.ScheduleModeFixed, AnchorTime: anchor}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Occurrences(tt.cfg, anchor, 30); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestScheduler_ensure_idempotent(t *testing.T) {
	store := newMemSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(store, nil, clock.NewFake(now), nil, nil, 30, nil)

	w := testWebinar(models.WebinarKindEvergreen)
	cfg := intervalConfig(w.ID, now.Add(-time.Hour), 120, 1)

	first, err := s.EnsureSessionsForWebinar(context.Background(), w, cfg, now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created == 0 || first.Existing != 0 {
		t.Fatalf("first run: %+v, want all created", first)
	}

	second, err := s.EnsureSessionsForWebinar(context.Background(), w, cfg, now)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.Existing != first.Created {
		t.Errorf("second run: %+v, want no new sessions", second)
	}
	if len(store.byKey) != first.Created {
		t.Errorf("store has %d sessions, want %d", len(store.byKey), first.Created)
	}
}

func TestScheduler_fixed_mode_single_session(t *testing.T) {
	store := newMemSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(store, nil, clock.NewFake(now), nil, nil, 30, nil)

	w := testWebinar(models.WebinarKindLive)
	cfg := &models.ScheduleConfig{
		WebinarID:   w.ID,
		Mode:        models.ScheduleModeFixed,
		AnchorTime:  now.Add(48 * time.Hour),
		HorizonDays: 7,
	}

	res, err := s.EnsureSessionsForWebinar(context.Background(), w, cfg, now)
	if err != nil {
		t.Fatalf("EnsureSessionsForWebinar: %v", err)
	}
	if res.Created != 1 {
		t.Fatalf("created = %d, want 1", res.Created)
	}
	res, err = s.EnsureSessionsForWebinar(context.Background(), w, cfg, now)
	if err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if res.Created != 0 || res.Existing != 1 {
		t.Errorf("re-run: %+v, want existing only", res)
	}
}

func TestScheduler_sessions_inherit_webinar_shape(t *testing.T) {
	store := newMemSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(store, nil, clock.NewFake(now), nil, nil, 30, nil)

	w := testWebinar(models.WebinarKindEvergreen)
	cfg := intervalConfig(w.ID, now, 720, 1)
	if _, err := s.EnsureSessionsForWebinar(context.Background(), w, cfg, now); err != nil {
		t.Fatalf("EnsureSessionsForWebinar: %v", err)
	}
	for _, sess := range store.byKey {
		if sess.Kind != models.WebinarKindEvergreen {
			t.Errorf("session kind = %s, want evergreen", sess.Kind)
		}
		if sess.DurationSeconds != w.DurationSeconds {
			t.Errorf("session duration = %d, want %d", sess.DurationSeconds, w.DurationSeconds)
		}
	}
}

func TestScheduler_batch_isolates_config_errors(t *testing.T) {
	store := newMemSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bad := testWebinar(models.WebinarKindEvergreen)
	good := testWebinar(models.WebinarKindEvergreen)
	configs := &memConfigSource{
		webinars: []models.Webinar{*bad, *good},
		configs: []models.ScheduleConfig{
			*intervalConfig(bad.ID, now, 0, 1), // malformed: zero interval
			*intervalConfig(good.ID, now, 360, 1),
		},
	}
	s := New(store, configs, clock.NewFake(now), nil, nil, 30, nil)

	batch, err := s.EnsureAll(context.Background())
	if err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	if batch.Processed != 1 {
		t.Errorf("processed = %d, want 1", batch.Processed)
	}
	if len(batch.Errors) != 1 || batch.Errors[0].WebinarID != bad.ID {
		t.Errorf("errors = %+v, want one error for the malformed webinar", batch.Errors)
	}
	if batch.Created == 0 {
		t.Error("the healthy webinar should still get sessions")
	}
}
