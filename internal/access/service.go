package access

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/pkg/clock"
	"github.com/evergreenlive/backend/pkg/metrics"
)

// ErrInvalidToken is returned for unknown tokens or tokens bound to a
// different webinar. Callers must not reveal which case occurred.
var ErrInvalidToken = errors.New("invalid token")

// RegistrationSource reads and mutates registrations.
type RegistrationSource interface {
	GetByToken(ctx context.Context, token string) (*models.Registration, error)
	AdvanceProgress(ctx context.Context, id uuid.UUID, position int) error
	MarkAttended(ctx context.Context, id uuid.UUID) error
}

// SessionSource reads sessions.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// WebinarSource reads webinar content (for the video object key).
type WebinarSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// VideoURLSigner issues playback URLs for video object keys.
type VideoURLSigner interface {
	PresignVideoURL(ctx context.Context, key string) (string, error)
}

// Result is the access-state answer returned to a polling viewer.
type Result struct {
	Decision
	SessionID       uuid.UUID `json:"session_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationSeconds int       `json:"duration_seconds"`
	VideoURL        string    `json:"video_url,omitempty"`
}

// Service answers access-state queries and records playback progress.
type Service struct {
	regs     RegistrationSource
	sessions SessionSource
	webinars WebinarSource
	signer   VideoURLSigner
	clock    clock.Clock
	policy   Policy
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates an access service. signer and m may be nil.
func NewService(regs RegistrationSource, sessions SessionSource, webinars WebinarSource, signer VideoURLSigner, clk clock.Clock, policy Policy, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		regs:     regs,
		sessions: sessions,
		webinars: webinars,
		signer:   signer,
		clock:    clk,
		policy:   policy,
		metrics:  m,
		logger:   logger,
	}
}

// Authorize resolves a token and confirms it belongs to the webinar.
func (s *Service) Authorize(ctx context.Context, webinarID uuid.UUID, token string) (*models.Registration, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrInvalidToken
	}
	reg, err := s.regs.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if reg == nil || reg.WebinarID != webinarID {
		return nil, nil, ErrInvalidToken
	}
	sess, err := s.sessions.GetByID(ctx, reg.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return reg, sess, nil
}

// State evaluates the viewer's current access phase and, when playback is
// allowed, attaches a presigned video URL.
func (s *Service) State(ctx context.Context, webinarID uuid.UUID, token string) (*Result, error) {
	reg, sess, err := s.Authorize(ctx, webinarID, token)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	d := Evaluate(sess, reg, now, s.policy)

	// Joining while the broadcast runs counts as attendance.
	if d.State == StateLiveWatching && !reg.Attended() {
		if err := s.regs.MarkAttended(ctx, reg.ID); err != nil {
			s.logger.Warn("mark attended failed", zap.String("registration_id", reg.ID.String()), zap.Error(err))
		}
	}

	res := &Result{
		Decision:        d,
		SessionID:       sess.ID,
		ScheduledAt:     sess.ScheduledAt,
		DurationSeconds: sess.DurationSeconds,
	}
	if s.signer != nil && (d.State == StateLiveWatching || d.State == StateEndedReplayAvailable) {
		if w, err := s.webinars.GetByID(ctx, webinarID); err == nil && w != nil && w.VideoKey != "" {
			url, err := s.signer.PresignVideoURL(ctx, w.VideoKey)
			if err != nil {
				s.logger.Warn("presign video url failed", zap.String("webinar_id", webinarID.String()), zap.Error(err))
			} else {
				res.VideoURL = url
			}
		}
	}
	return res, nil
}

// RecordProgress raises the registration's max video position. Positions
// beyond the current allowed ceiling are dropped without error: client clock
// drift makes some ahead-of-ceiling heartbeats expected, and silently
// ignoring them is what keeps tampering from breaking the live pacing.
func (s *Service) RecordProgress(ctx context.Context, webinarID uuid.UUID, token string, position int) error {
	reg, sess, err := s.Authorize(ctx, webinarID, token)
	if err != nil {
		return err
	}
	if position <= 0 {
		return nil
	}
	d := Evaluate(sess, reg, s.clock.Now(), s.policy)

	var limit int
	switch d.State {
	case StateLiveWatching, StateCaughtUpWaiting:
		if d.HasCeiling {
			limit = d.AllowedCeiling
		} else {
			// Live broadcast: the playhead cannot be past the elapsed time.
			limit = d.ElapsedSeconds
		}
	case StateEndedReplayAvailable:
		limit = sess.DurationSeconds
	default:
		// Not started or missed: nothing to record.
		return nil
	}
	if position > limit {
		if s.metrics != nil {
			s.metrics.ProgressRejectedTotal.Inc()
		}
		return nil
	}
	return s.regs.AdvanceProgress(ctx, reg.ID, position)
}
