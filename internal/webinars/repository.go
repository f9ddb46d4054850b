// Package webinars reads webinar content and schedule configuration.
// Webinar and config CRUD belongs to the external admin surface; this engine
// only consumes them.
package webinars

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreenlive/backend/internal/models"
)

// Repository handles webinar and schedule config reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinars repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a webinar by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	const q = `SELECT id, title, description, kind, duration_seconds, video_key, is_active, created_at, updated_at
		FROM webinars WHERE id = $1`
	var w models.Webinar
	err := r.pool.QueryRow(ctx, q, id).Scan(&w.ID, &w.Title, &w.Description, &w.Kind, &w.DurationSeconds, &w.VideoKey, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetScheduleConfig returns the schedule config for a webinar.
func (r *Repository) GetScheduleConfig(ctx context.Context, webinarID uuid.UUID) (*models.ScheduleConfig, error) {
	const q = `SELECT webinar_id, mode, interval_minutes, anchor_time, timezone, horizon_days, updated_at
		FROM schedule_configs WHERE webinar_id = $1`
	var c models.ScheduleConfig
	err := r.pool.QueryRow(ctx, q, webinarID).Scan(&c.WebinarID, &c.Mode, &c.IntervalMinutes, &c.AnchorTime, &c.Timezone, &c.HorizonDays, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListActive returns all active webinars together with their schedule configs.
func (r *Repository) ListActive(ctx context.Context) ([]models.Webinar, []models.ScheduleConfig, error) {
	const q = `SELECT w.id, w.title, w.description, w.kind, w.duration_seconds, w.video_key, w.is_active, w.created_at, w.updated_at,
			c.mode, c.interval_minutes, c.anchor_time, c.timezone, c.horizon_days, c.updated_at
		FROM webinars w
		JOIN schedule_configs c ON c.webinar_id = w.id
		WHERE w.is_active ORDER BY w.created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ws []models.Webinar
	var cs []models.ScheduleConfig
	for rows.Next() {
		var w models.Webinar
		var c models.ScheduleConfig
		if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.Kind, &w.DurationSeconds, &w.VideoKey, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
			&c.Mode, &c.IntervalMinutes, &c.AnchorTime, &c.Timezone, &c.HorizonDays, &c.UpdatedAt); err != nil {
			return nil, nil, err
		}
		c.WebinarID = w.ID
		ws = append(ws, w)
		cs = append(cs, c)
	}
	return ws, cs, rows.Err()
}
