package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreenlive/backend/internal/models"
)

// Repository handles notification job persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notification jobs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertIfAbsent inserts a job unless one exists for (registration_id, trigger).
// The unique constraint resolves concurrent enqueue attempts without locks.
func (r *Repository) InsertIfAbsent(ctx context.Context, job *models.NotificationJob) (bool, error) {
	const q = `INSERT INTO notification_jobs (id, registration_id, trigger, due_at)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (registration_id, trigger) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, job.RegistrationID, job.Trigger, job.DueAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListDue returns due pending jobs, plus failed jobs still under the retry
// bound, joined with their registration and session, ordered by due_at.
func (r *Repository) ListDue(ctx context.Context, now time.Time, maxAttempts int) ([]DueJob, error) {
	const q = `SELECT j.id, j.registration_id, j.trigger, j.due_at, j.status, j.attempts, j.last_error, j.created_at, j.updated_at,
			r.id, r.webinar_id, r.session_id, r.email, r.full_name, r.max_video_position, r.attended_at, r.registered_at, r.updated_at,
			s.id, s.webinar_id, s.scheduled_at, s.kind, s.duration_seconds, s.created_at,
			w.title
		FROM notification_jobs j
		JOIN registrations r ON r.id = j.registration_id
		JOIN sessions s ON s.id = r.session_id
		JOIN webinars w ON w.id = r.webinar_id
		WHERE j.due_at <= $1
		  AND (j.status = 'pending' OR (j.status = 'failed' AND j.attempts < $2))
		ORDER BY j.due_at ASC`
	rows, err := r.pool.Query(ctx, q, now, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []DueJob
	for rows.Next() {
		var d DueJob
		if err := rows.Scan(
			&d.Job.ID, &d.Job.RegistrationID, &d.Job.Trigger, &d.Job.DueAt, &d.Job.Status, &d.Job.Attempts, &d.Job.LastError, &d.Job.CreatedAt, &d.Job.UpdatedAt,
			&d.Registration.ID, &d.Registration.WebinarID, &d.Registration.SessionID, &d.Registration.Email, &d.Registration.FullName, &d.Registration.MaxVideoPosition, &d.Registration.AttendedAt, &d.Registration.RegisteredAt, &d.Registration.UpdatedAt,
			&d.Session.ID, &d.Session.WebinarID, &d.Session.ScheduledAt, &d.Session.Kind, &d.Session.DurationSeconds, &d.Session.CreatedAt,
			&d.WebinarTitle,
		); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// MarkSent transitions a job to sent, counting the attempt.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE notification_jobs SET status = 'sent', attempts = attempts + 1, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkFailed transitions a job to failed with the delivery error, counting the attempt.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE notification_jobs SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, reason)
	return err
}

// MarkSkipped transitions a job to skipped without sending.
func (r *Repository) MarkSkipped(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE notification_jobs SET status = 'skipped', updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
