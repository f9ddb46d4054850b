// Package notifications decouples "what should fire and when" from the
// actual delivery. Jobs are enqueued idempotently against the
// (registration_id, trigger) unique key and drained by a periodic external
// trigger; the worker performs the real send.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
	"github.com/evergreenlive/backend/pkg/metrics"
)

// DueJob is a job joined with the registration and session it notifies about,
// so drain preconditions can be checked without extra round trips.
type DueJob struct {
	Job          models.NotificationJob
	Registration models.Registration
	Session      models.Session
	WebinarTitle string
}

// JobStore persists notification jobs.
type JobStore interface {
	// InsertIfAbsent inserts the job unless one exists for its
	// (registration_id, trigger) pair. Returns true when a row was created.
	InsertIfAbsent(ctx context.Context, job *models.NotificationJob) (bool, error)
	// ListDue returns pending jobs (and failed jobs with attempts below
	// maxAttempts) with due_at <= now, ordered by due_at ascending.
	ListDue(ctx context.Context, now time.Time, maxAttempts int) ([]DueJob, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	MarkSkipped(ctx context.Context, id uuid.UUID) error
}

// Sender hands one due job to the delivery path.
type Sender interface {
	Send(ctx context.Context, d *DueJob) error
}

// Config holds trigger timing and drain settings.
type Config struct {
	ReminderLead time.Duration // reminder_before fires this long before start
	NoShowGrace  time.Duration // no_show fires this long after session end
	MaxAttempts  int           // terminal failure bound
	SendTimeout  time.Duration // per-job delivery timeout
}

// Stats summarizes one drain invocation.
type Stats struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Scheduler enqueues trigger-based jobs and drains due ones.
type Scheduler struct {
	jobs    JobStore
	sender  Sender
	clock   clock.Clock
	cfg     Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewScheduler creates a notification scheduler. m may be nil.
func NewScheduler(jobs JobStore, sender Sender, clk clock.Clock, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Scheduler{jobs: jobs, sender: sender, clock: clk, cfg: cfg, metrics: m, logger: logger}
}

// EnqueueForRegistration inserts the registrant's trigger jobs, keyed off the
// session timestamps. Existing (registration, trigger) pairs are left alone,
// so repeated signup attempts and batch runs never duplicate a job. Returns
// how many jobs were newly created.
func (s *Scheduler) EnqueueForRegistration(ctx context.Context, reg *models.Registration, sess *models.Session) (int, error) {
	jobs := []models.NotificationJob{
		{Trigger: models.TriggerReminderBefore, DueAt: sess.ScheduledAt.Add(-s.cfg.ReminderLead)},
		{Trigger: models.TriggerStarted, DueAt: sess.ScheduledAt},
		{Trigger: models.TriggerNoShow, DueAt: sess.EndsAt().Add(s.cfg.NoShowGrace)},
		{Trigger: models.TriggerCompleted, DueAt: sess.EndsAt()},
	}
	created := 0
	for i := range jobs {
		jobs[i].RegistrationID = reg.ID
		ok, err := s.jobs.InsertIfAbsent(ctx, &jobs[i])
		if err != nil {
			return created, fmt.Errorf("enqueue %s: %w", jobs[i].Trigger, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ProcessDueJobs drains all due jobs at the current instant. Jobs are
// attempted in due_at order but their outcomes are independent: one delivery
// failure never stops the batch.
func (s *Scheduler) ProcessDueJobs(ctx context.Context) (Stats, error) {
	now := s.clock.Now()
	due, err := s.jobs.ListDue(ctx, now, s.cfg.MaxAttempts)
	if err != nil {
		return Stats{}, fmt.Errorf("list due jobs: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DueJobsBacklog.Set(float64(len(due)))
	}

	var stats Stats
	for i := range due {
		d := &due[i]
		if reason, skip := s.precondition(d, now); skip {
			if err := s.jobs.MarkSkipped(ctx, d.Job.ID); err != nil {
				s.logger.Error("mark skipped failed", zap.String("job_id", d.Job.ID.String()), zap.Error(err))
				continue
			}
			stats.Skipped++
			if s.metrics != nil {
				s.metrics.NotificationsSkippedTotal.Inc()
			}
			s.logger.Debug("job skipped",
				zap.String("job_id", d.Job.ID.String()),
				zap.String("trigger", string(d.Job.Trigger)),
				zap.String("reason", reason))
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.sender.Send(sendCtx, d)
		cancel()
		if err != nil {
			if markErr := s.jobs.MarkFailed(ctx, d.Job.ID, err.Error()); markErr != nil {
				s.logger.Error("mark failed failed", zap.String("job_id", d.Job.ID.String()), zap.Error(markErr))
			}
			stats.Failed++
			if s.metrics != nil {
				s.metrics.NotificationsFailedTotal.Inc()
			}
			if d.Job.Attempts+1 >= s.cfg.MaxAttempts {
				s.logger.Error("notification terminally failed",
					zap.String("job_id", d.Job.ID.String()),
					zap.String("trigger", string(d.Job.Trigger)),
					zap.Int("attempts", d.Job.Attempts+1),
					zap.Error(err))
			} else {
				s.logger.Warn("notification delivery failed",
					zap.String("job_id", d.Job.ID.String()), zap.Error(err))
			}
			continue
		}
		if err := s.jobs.MarkSent(ctx, d.Job.ID); err != nil {
			s.logger.Error("mark sent failed", zap.String("job_id", d.Job.ID.String()), zap.Error(err))
			continue
		}
		stats.Sent++
		if s.metrics != nil {
			s.metrics.NotificationsSentTotal.Inc()
		}
	}
	return stats, nil
}

// precondition reports whether a due job no longer applies.
func (s *Scheduler) precondition(d *DueJob, now time.Time) (string, bool) {
	switch d.Job.Trigger {
	case models.TriggerNoShow:
		if d.Registration.Attended() {
			return "registrant attended", true
		}
	case models.TriggerCompleted:
		if d.Registration.MaxVideoPosition < d.Session.DurationSeconds {
			return "watch not completed", true
		}
	case models.TriggerReminderBefore, models.TriggerStarted:
		// Stale after downtime: don't remind about a session that already ended.
		if now.After(d.Session.EndsAt()) {
			return "session already ended", true
		}
	}
	return "", false
}
