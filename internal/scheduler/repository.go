package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreenlive/backend/internal/models"
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertIfAbsent inserts a session unless one exists for (webinar_id, scheduled_at).
// The unique constraint resolves concurrent generation runs without locks.
func (r *Repository) InsertIfAbsent(ctx context.Context, s *models.Session) (bool, error) {
	const q = `INSERT INTO sessions (id, webinar_id, scheduled_at, kind, duration_seconds)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		ON CONFLICT (webinar_id, scheduled_at) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, s.WebinarID, s.ScheduledAt, s.Kind, s.DurationSeconds)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID returns a session by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT id, webinar_id, scheduled_at, kind, duration_seconds, created_at
		FROM sessions WHERE id = $1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Kind, &s.DurationSeconds, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// NextAfter returns the earliest session of a webinar starting at or after t,
// or nil when none is materialized yet.
func (r *Repository) NextAfter(ctx context.Context, webinarID uuid.UUID, t time.Time) (*models.Session, error) {
	const q = `SELECT id, webinar_id, scheduled_at, kind, duration_seconds, created_at
		FROM sessions WHERE webinar_id = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at ASC LIMIT 1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, webinarID, t).Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Kind, &s.DurationSeconds, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestBefore returns the most recent session of a webinar starting before t,
// or nil when the webinar has never had a session.
func (r *Repository) LatestBefore(ctx context.Context, webinarID uuid.UUID, t time.Time) (*models.Session, error) {
	const q = `SELECT id, webinar_id, scheduled_at, kind, duration_seconds, created_at
		FROM sessions WHERE webinar_id = $1 AND scheduled_at < $2
		ORDER BY scheduled_at DESC LIMIT 1`
	var s models.Session
	err := r.pool.QueryRow(ctx, q, webinarID, t).Scan(&s.ID, &s.WebinarID, &s.ScheduledAt, &s.Kind, &s.DurationSeconds, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
