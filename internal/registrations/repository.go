package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreenlive/backend/internal/models"
)

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts a registration (unique per webinar+email). Re-registering
// keeps the existing session binding and access token; reg is updated in
// place with the persisted row.
func (r *Repository) Upsert(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (id, webinar_id, session_id, email, full_name, access_token)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		ON CONFLICT (webinar_id, email) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = NOW()
		RETURNING id, session_id, access_token, max_video_position, attended_at, registered_at, updated_at`
	return r.pool.QueryRow(ctx, q, reg.WebinarID, reg.SessionID, reg.Email, reg.FullName, reg.AccessToken).
		Scan(&reg.ID, &reg.SessionID, &reg.AccessToken, &reg.MaxVideoPosition, &reg.AttendedAt, &reg.RegisteredAt, &reg.UpdatedAt)
}

// GetByToken returns the registration holding an access token, or nil when
// the token is unknown.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	const q = `SELECT id, webinar_id, session_id, email, full_name, access_token, max_video_position, attended_at, registered_at, updated_at
		FROM registrations WHERE access_token = $1`
	var reg models.Registration
	err := r.pool.QueryRow(ctx, q, token).Scan(&reg.ID, &reg.WebinarID, &reg.SessionID, &reg.Email, &reg.FullName, &reg.AccessToken, &reg.MaxVideoPosition, &reg.AttendedAt, &reg.RegisteredAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// AdvanceProgress raises max_video_position to position if greater. The
// monotonic max runs inside the update so concurrent out-of-order heartbeats
// cannot lose the furthest point. The first heartbeat also stamps attendance.
func (r *Repository) AdvanceProgress(ctx context.Context, id uuid.UUID, position int) error {
	const q = `UPDATE registrations
		SET max_video_position = GREATEST(max_video_position, $2),
		    attended_at = COALESCE(attended_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, position)
	return err
}

// MarkAttended stamps attendance for a registration if not already set.
func (r *Repository) MarkAttended(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE registrations SET attended_at = NOW(), updated_at = NOW() WHERE id = $1 AND attended_at IS NULL`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
