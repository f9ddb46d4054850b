package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evergreenlive/backend/internal/models"
)

// Repository reads chat script entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat script repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListWindow returns entries with appears_at in (from, to]. The secondary id
// ordering makes repeated calls byte-identical when offsets collide.
func (r *Repository) ListWindow(ctx context.Context, webinarID uuid.UUID, from, to int) ([]models.ChatScriptEntry, error) {
	const q = `SELECT id, webinar_id, sender_name, message, appears_at, is_from_moderator
		FROM chat_script_entries
		WHERE webinar_id = $1 AND appears_at > $2 AND appears_at <= $3
		ORDER BY appears_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, q, webinarID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatScriptEntry
	for rows.Next() {
		var e models.ChatScriptEntry
		if err := rows.Scan(&e.ID, &e.WebinarID, &e.SenderName, &e.Message, &e.AppearsAt, &e.IsFromModerator); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
