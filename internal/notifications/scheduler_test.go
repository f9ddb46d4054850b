package notifications

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
)

type memJobStore struct {
	jobs         map[uuid.UUID]*models.NotificationJob
	registration models.Registration
	session      models.Session
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*models.NotificationJob)}
}

func (m *memJobStore) InsertIfAbsent(_ context.Context, job *models.NotificationJob) (bool, error) {
	for _, j := range m.jobs {
		if j.RegistrationID == job.RegistrationID && j.Trigger == job.Trigger {
			return false, nil
		}
	}
	cp := *job
	cp.ID = uuid.New()
	cp.Status = models.NotificationPending
	m.jobs[cp.ID] = &cp
	return true, nil
}

func (m *memJobStore) ListDue(_ context.Context, now time.Time, maxAttempts int) ([]DueJob, error) {
	var out []DueJob
	for _, j := range m.jobs {
		if j.DueAt.After(now) {
			continue
		}
		retryable := j.Status == models.NotificationFailed && j.Attempts < maxAttempts
		if j.Status != models.NotificationPending && !retryable {
			continue
		}
		out = append(out, DueJob{
			Job:          *j,
			Registration: m.registration,
			Session:      m.session,
			WebinarTitle: "Growth Masterclass",
		})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Job.DueAt.Before(out[k].Job.DueAt) })
	return out, nil
}

func (m *memJobStore) MarkSent(_ context.Context, id uuid.UUID) error {
	j := m.jobs[id]
	j.Status = models.NotificationSent
	j.Attempts++
	return nil
}

func (m *memJobStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	j := m.jobs[id]
	j.Status = models.NotificationFailed
	j.Attempts++
	j.LastError = reason
	return nil
}

func (m *memJobStore) MarkSkipped(_ context.Context, id uuid.UUID) error {
	m.jobs[id].Status = models.NotificationSkipped
	return nil
}

type fakeSender struct {
	sent    []models.NotificationTrigger
	failFor map[models.NotificationTrigger]error
}

func (f *fakeSender) Send(_ context.Context, d *DueJob) error {
	if err := f.failFor[d.Job.Trigger]; err != nil {
		return err
	}
	f.sent = append(f.sent, d.Job.Trigger)
	return nil
}

var sessionStart = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func fixture(store *memJobStore) (*models.Registration, *models.Session) {
	sess := &models.Session{
		ID:              uuid.New(),
		WebinarID:       uuid.New(),
		ScheduledAt:     sessionStart,
		Kind:            models.WebinarKindEvergreen,
		DurationSeconds: 3600,
	}
	reg := &models.Registration{
		ID:        uuid.New(),
		WebinarID: sess.WebinarID,
		SessionID: sess.ID,
		Email:     "viewer@example.com",
	}
	store.registration = *reg
	store.session = *sess
	return reg, sess
}

func TestScheduler_EnqueueForRegistration_idempotent(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	s := NewScheduler(store, &fakeSender{}, clock.NewFake(sessionStart), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
	}, nil, nil)

	created, err := s.EnqueueForRegistration(context.Background(), reg, sess)
	if err != nil {
		t.Fatalf("EnqueueForRegistration: %v", err)
	}
	if created != 4 {
		t.Fatalf("created = %d, want 4", created)
	}

	created, err = s.EnqueueForRegistration(context.Background(), reg, sess)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created != 0 {
		t.Errorf("second enqueue created = %d, want 0", created)
	}
	if len(store.jobs) != 4 {
		t.Errorf("store has %d jobs, want 4", len(store.jobs))
	}
}

func TestScheduler_EnqueueForRegistration_due_times(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	s := NewScheduler(store, &fakeSender{}, clock.NewFake(sessionStart), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
	}, nil, nil)

	if _, err := s.EnqueueForRegistration(context.Background(), reg, sess); err != nil {
		t.Fatalf("EnqueueForRegistration: %v", err)
	}

	want := map[models.NotificationTrigger]time.Time{
		models.TriggerReminderBefore: sessionStart.Add(-15 * time.Minute),
		models.TriggerStarted:        sessionStart,
		models.TriggerCompleted:      sessionStart.Add(time.Hour),
		models.TriggerNoShow:         sessionStart.Add(time.Hour + 30*time.Minute),
	}
	for _, j := range store.jobs {
		if !j.DueAt.Equal(want[j.Trigger]) {
			t.Errorf("%s due at %s, want %s", j.Trigger, j.DueAt, want[j.Trigger])
		}
	}
}

func TestScheduler_ProcessDueJobs_sends_in_due_order(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	sender := &fakeSender{}
	// Poll just after start: reminder and started are due, the rest are not.
	s := NewScheduler(store, sender, clock.NewFake(sessionStart.Add(time.Minute)), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
	}, nil, nil)
	if _, err := s.EnqueueForRegistration(context.Background(), reg, sess); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := s.ProcessDueJobs(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueJobs: %v", err)
	}
	if stats.Sent != 2 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want 2 sent", stats)
	}
	wantOrder := []models.NotificationTrigger{models.TriggerReminderBefore, models.TriggerStarted}
	for i, trig := range wantOrder {
		if sender.sent[i] != trig {
			t.Errorf("sent[%d] = %s, want %s", i, sender.sent[i], trig)
		}
	}

	// Re-draining must not resend.
	stats, err = s.ProcessDueJobs(context.Background())
	if err != nil {
		t.Fatalf("second drain: %v", err)
	}
	if stats.Sent != 0 {
		t.Errorf("second drain sent %d, want 0", stats.Sent)
	}
}

func TestScheduler_ProcessDueJobs_skips_stale_triggers(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	// Drain long after the session ended: reminder and started are stale.
	s := NewScheduler(store, &fakeSender{}, clock.NewFake(sessionStart.Add(3*time.Hour)), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
	}, nil, nil)
	if _, err := s.EnqueueForRegistration(context.Background(), reg, sess); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := s.ProcessDueJobs(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueJobs: %v", err)
	}
	// reminder + started + completed (never watched) skipped, no_show sent.
	if stats.Skipped != 3 || stats.Sent != 1 {
		t.Fatalf("stats = %+v, want 3 skipped / 1 sent", stats)
	}
}

func TestScheduler_ProcessDueJobs_no_show_skipped_for_attendee(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	attendedAt := sessionStart.Add(5 * time.Minute)
	store.registration.AttendedAt = &attendedAt
	store.registration.MaxVideoPosition = sess.DurationSeconds

	s := NewScheduler(store, &fakeSender{}, clock.NewFake(sessionStart.Add(3*time.Hour)), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
	}, nil, nil)
	if _, err := s.EnqueueForRegistration(context.Background(), reg, sess); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := s.ProcessDueJobs(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueJobs: %v", err)
	}
	// Attendee who finished the video: completed sent, no_show skipped,
	// reminder/started stale.
	if stats.Sent != 1 || stats.Skipped != 3 {
		t.Fatalf("stats = %+v, want 1 sent / 3 skipped", stats)
	}
	for _, j := range store.jobs {
		if j.Trigger == models.TriggerNoShow && j.Status != models.NotificationSkipped {
			t.Errorf("no_show status = %s, want skipped", j.Status)
		}
		if j.Trigger == models.TriggerCompleted && j.Status != models.NotificationSent {
			t.Errorf("completed status = %s, want sent", j.Status)
		}
	}
}

func TestScheduler_ProcessDueJobs_failure_isolation_and_retry_cap(t *testing.T) {
	store := newMemJobStore()
	reg, sess := fixture(store)
	sender := &fakeSender{failFor: map[models.NotificationTrigger]error{
		models.TriggerReminderBefore: errors.New("smtp unavailable"),
	}}
	s := NewScheduler(store, sender, clock.NewFake(sessionStart.Add(time.Minute)), Config{
		ReminderLead: 15 * time.Minute,
		NoShowGrace:  30 * time.Minute,
		MaxAttempts:  3,
	}, nil, nil)
	if _, err := s.EnqueueForRegistration(context.Background(), reg, sess); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := s.ProcessDueJobs(context.Background())
	if err != nil {
		t.Fatalf("ProcessDueJobs: %v", err)
	}
	if stats.Failed != 1 || stats.Sent != 1 {
		t.Fatalf("stats = %+v, want started sent despite reminder failing", stats)
	}

	// Failed jobs are retried until the attempt cap, then dropped from ListDue.
	for i := 0; i < 5; i++ {
		if _, err := s.ProcessDueJobs(context.Background()); err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
	}
	for _, j := range store.jobs {
		if j.Trigger != models.TriggerReminderBefore {
			continue
		}
		if j.Attempts != 3 {
			t.Errorf("attempts = %d, want capped at 3", j.Attempts)
		}
		if j.Status != models.NotificationFailed {
			t.Errorf("status = %s, want failed", j.Status)
		}
		if j.LastError == "" {
			t.Error("last_error should record the delivery failure")
		}
	}
}
