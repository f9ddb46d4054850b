// Package scheduler materializes concrete webinar sessions from per-webinar
// recurrence rules. Generation is idempotent: it runs from a periodic external
// trigger with at-least-once semantics, so every insert goes through the
// (webinar_id, scheduled_at) unique key.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
	"github.com/evergreenlive/backend/pkg/metrics"
)

// ErrInvalidConfig marks a malformed schedule config. Reported per webinar,
// never aborts a batch run.
var ErrInvalidConfig = errors.New("invalid schedule config")

// SessionStore persists sessions keyed by (webinar_id, scheduled_at).
type SessionStore interface {
	// InsertIfAbsent inserts the session unless one already exists for its
	// webinar and scheduled time. Returns true when a row was created.
	InsertIfAbsent(ctx context.Context, s *models.Session) (bool, error)
}

// ConfigSource lists active webinars with their schedule configs.
type ConfigSource interface {
	ListActive(ctx context.Context) ([]models.Webinar, []models.ScheduleConfig, error)
}

// Announcer publishes session lifecycle events to the external relay.
type Announcer interface {
	PublishSessionCreated(webinarID uuid.UUID, scheduledAt time.Time)
}

// Result counts the outcome of one webinar's generation run.
type Result struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// WebinarError is one webinar's generation failure within a batch.
type WebinarError struct {
	WebinarID uuid.UUID `json:"webinar_id"`
	Error     string    `json:"error"`
}

// BatchResult summarizes a full generation run across webinars.
type BatchResult struct {
	Processed int            `json:"processed"`
	Created   int            `json:"created"`
	Errors    []WebinarError `json:"errors"`
}

// Scheduler expands schedule configs into session rows inside a rolling horizon.
type Scheduler struct {
	sessions   SessionStore
	configs    ConfigSource
	clock      clock.Clock
	announcer  Announcer
	metrics    *metrics.Metrics
	horizonCap int
	logger     *zap.Logger
}

// New creates a session scheduler. announcer and m may be nil.
func New(sessions SessionStore, configs ConfigSource, clk clock.Clock, announcer Announcer, m *metrics.Metrics, horizonDaysCap int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if horizonDaysCap <= 0 {
		horizonDaysCap = 30
	}
	return &Scheduler{
		sessions:   sessions,
		configs:    configs,
		clock:      clk,
		announcer:  announcer,
		metrics:    m,
		horizonCap: horizonDaysCap,
		logger:     logger,
	}
}

// Occurrences returns the session start instants a config requires inside
// [now, now + horizon]. For interval mode the k range is computed analytically
// so cost stays proportional to sessions in the horizon, not webinar age.
func Occurrences(cfg *models.ScheduleConfig, now time.Time, horizonDaysCap int) ([]time.Time, error) {
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.AnchorTime.IsZero() {
		return nil, fmt.Errorf("%w: anchor time not set", ErrInvalidConfig)
	}
	horizonDays := cfg.HorizonDays
	if horizonDays <= 0 {
		return nil, fmt.Errorf("%w: horizon_days must be positive", ErrInvalidConfig)
	}
	if horizonDays > horizonDaysCap {
		horizonDays = horizonDaysCap
	}

	if cfg.Mode == models.ScheduleModeFixed {
		return []time.Time{cfg.AnchorTime}, nil
	}

	if cfg.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("%w: interval_minutes must be positive", ErrInvalidConfig)
	}
	interval := time.Duration(cfg.IntervalMinutes) * time.Minute
	horizonEnd := now.Add(time.Duration(horizonDays) * 24 * time.Hour)

	// kMin is the first occurrence at or after now, kMax the last one inside
	// the horizon. Occurrences before the anchor do not exist.
	var kMin int64
	if diff := now.Sub(cfg.AnchorTime); diff > 0 {
		kMin = int64(diff / interval)
		if diff%interval != 0 {
			kMin++
		}
	}
	span := horizonEnd.Sub(cfg.AnchorTime)
	if span < 0 {
		return nil, nil
	}
	kMax := int64(span / interval)

	var out []time.Time
	for k := kMin; k <= kMax; k++ {
		out = append(out, cfg.AnchorTime.Add(time.Duration(k)*interval))
	}
	return out, nil
}

// EnsureSessionsForWebinar upserts every session the config requires in the
// horizon window. Re-running with the same inputs is a no-op.
func (s *Scheduler) EnsureSessionsForWebinar(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, now time.Time) (Result, error) {
	var res Result
	if !w.Kind.Valid() {
		return res, fmt.Errorf("%w: unknown webinar kind %q", ErrInvalidConfig, w.Kind)
	}
	if w.DurationSeconds <= 0 {
		return res, fmt.Errorf("%w: webinar duration must be positive", ErrInvalidConfig)
	}
	times, err := Occurrences(cfg, now, s.horizonCap)
	if err != nil {
		return res, err
	}
	for _, t := range times {
		sess := &models.Session{
			WebinarID:       w.ID,
			ScheduledAt:     t,
			Kind:            w.Kind,
			DurationSeconds: w.DurationSeconds,
		}
		created, err := s.sessions.InsertIfAbsent(ctx, sess)
		if err != nil {
			return res, fmt.Errorf("insert session at %s: %w", t.Format(time.RFC3339), err)
		}
		if created {
			res.Created++
			if s.metrics != nil {
				s.metrics.SessionsGeneratedTotal.Inc()
			}
			if s.announcer != nil {
				s.announcer.PublishSessionCreated(w.ID, t)
			}
		} else {
			res.Existing++
		}
	}
	return res, nil
}

// EnsureAll runs generation for every active webinar. One webinar's failure is
// recorded and does not abort the rest of the batch.
func (s *Scheduler) EnsureAll(ctx context.Context) (BatchResult, error) {
	now := s.clock.Now()
	webinars, configs, err := s.configs.ListActive(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active webinars: %w", err)
	}
	batch := BatchResult{Errors: []WebinarError{}}
	for i := range webinars {
		w := &webinars[i]
		res, err := s.EnsureSessionsForWebinar(ctx, w, &configs[i], now)
		if err != nil {
			s.logger.Warn("session generation failed",
				zap.String("webinar_id", w.ID.String()), zap.Error(err))
			batch.Errors = append(batch.Errors, WebinarError{WebinarID: w.ID, Error: err.Error()})
			continue
		}
		batch.Processed++
		batch.Created += res.Created
	}
	return batch, nil
}
