package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/fretboard/internal/models"
)

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Insert relies on the deterministic id: a second insert for the same
// (client, note) pair hits the primary key and is dropped.
func (s *NotificationStore) Insert(ctx context.Context, n models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (id, recipient_uid, type, message, guitar_id, note_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, n.ID, n.RecipientUID, n.Type, n.Message, n.GuitarID, n.NoteID)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipientUID uuid.UUID) ([]models.Notification, error) {
	query := `
		SELECT id, recipient_uid, type, message, guitar_id, note_id, read, created_at
		FROM notifications
		WHERE recipient_uid = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, recipientUID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientUID,
			&n.Type,
			&n.Message,
			&n.GuitarID,
			&n.NoteID,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, recipientUID uuid.UUID, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND recipient_uid = $2`,
		id, recipientUID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
