// Package registrations binds incoming registrants to the next qualifying
// session of a webinar and issues their access credentials.
package registrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evergreenlive/backend/internal/models"
	"github.com/evergreenlive/backend/internal/scheduler"
	"github.com/evergreenlive/backend/pkg/clock"
)

// ErrWebinarNotFound is returned when the webinar does not exist or is inactive.
var ErrWebinarNotFound = errors.New("webinar not found")

// ErrNoSession is returned when no session can be assigned to a registrant.
var ErrNoSession = errors.New("no session available")

// WebinarSource reads webinar content and schedule configuration.
type WebinarSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	GetScheduleConfig(ctx context.Context, webinarID uuid.UUID) (*models.ScheduleConfig, error)
}

// SessionSource reads materialized sessions.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	NextAfter(ctx context.Context, webinarID uuid.UUID, t time.Time) (*models.Session, error)
	LatestBefore(ctx context.Context, webinarID uuid.UUID, t time.Time) (*models.Session, error)
}

// Store persists registrations.
type Store interface {
	Upsert(ctx context.Context, reg *models.Registration) error
}

// Ensurer materializes sessions before assignment so a brand-new interval
// webinar always has an upcoming session.
type Ensurer interface {
	EnsureSessionsForWebinar(ctx context.Context, w *models.Webinar, cfg *models.ScheduleConfig, now time.Time) (scheduler.Result, error)
}

// Notifier enqueues the registrant's notification jobs.
type Notifier interface {
	EnqueueForRegistration(ctx context.Context, reg *models.Registration, sess *models.Session) (int, error)
}

// Assigner assigns registrants to sessions and issues access tokens.
type Assigner struct {
	webinars WebinarSource
	sessions SessionSource
	store    Store
	ensure   Ensurer
	notify   Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

// NewAssigner creates a registration assigner. ensure and notify may be nil.
func NewAssigner(webinars WebinarSource, sessions SessionSource, store Store, ensure Ensurer, notify Notifier, clk clock.Clock, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{
		webinars: webinars,
		sessions: sessions,
		store:    store,
		ensure:   ensure,
		notify:   notify,
		clock:    clk,
		logger:   logger,
	}
}

// Register binds email to the next upcoming session of the webinar, falling
// back to the most recent past session for replay access. Re-registering the
// same email returns the existing binding and token.
func (a *Assigner) Register(ctx context.Context, webinarID uuid.UUID, email, fullName string) (*models.Registration, *models.Session, error) {
	w, err := a.webinars.GetByID(ctx, webinarID)
	if err != nil || w == nil || !w.IsActive {
		return nil, nil, ErrWebinarNotFound
	}
	cfg, err := a.webinars.GetScheduleConfig(ctx, webinarID)
	if err != nil || cfg == nil {
		return nil, nil, ErrWebinarNotFound
	}

	now := a.clock.Now()
	if a.ensure != nil {
		// Best effort: a generation failure must not block signup when a
		// session already exists.
		if _, err := a.ensure.EnsureSessionsForWebinar(ctx, w, cfg, now); err != nil {
			a.logger.Warn("pre-signup session generation failed",
				zap.String("webinar_id", webinarID.String()), zap.Error(err))
		}
	}

	sess, err := a.sessions.NextAfter(ctx, webinarID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("find next session: %w", err)
	}
	if sess == nil {
		sess, err = a.sessions.LatestBefore(ctx, webinarID, now)
		if err != nil {
			return nil, nil, fmt.Errorf("find past session: %w", err)
		}
	}
	if sess == nil {
		return nil, nil, ErrNoSession
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}
	reg := &models.Registration{
		WebinarID:   webinarID,
		SessionID:   sess.ID,
		Email:       email,
		FullName:    fullName,
		AccessToken: token,
	}
	if err := a.store.Upsert(ctx, reg); err != nil {
		return nil, nil, fmt.Errorf("store registration: %w", err)
	}
	// An existing registration keeps its original session binding.
	if reg.SessionID != sess.ID {
		existing, err := a.sessions.GetByID(ctx, reg.SessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("load assigned session: %w", err)
		}
		sess = existing
	}

	if a.notify != nil {
		if _, err := a.notify.EnqueueForRegistration(ctx, reg, sess); err != nil {
			// The periodic batch run re-enqueues missing jobs.
			a.logger.Warn("notification enqueue failed",
				zap.String("registration_id", reg.ID.String()), zap.Error(err))
		}
	}
	return reg, sess, nil
}
