package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/fretboard/internal/models"
)

type NoteStore struct {
	pool *pgxpool.Pool
}

func NewNoteStore(pool *pgxpool.Pool) *NoteStore {
	return &NoteStore{pool: pool}
}

func (s *NoteStore) Create(ctx context.Context, guitarID, authorUID uuid.UUID, body string, visibleToClient bool) (*models.Note, error) {
	query := `
		INSERT INTO notes (guitar_id, author_uid, body, visible_to_client, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, guitar_id, author_uid, body, visible_to_client, created_at`

	var n models.Note
	err := s.pool.QueryRow(ctx, query, guitarID, authorUID, body, visibleToClient).Scan(
		&n.ID,
		&n.GuitarID,
		&n.AuthorUID,
		&n.Body,
		&n.VisibleToClient,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &n, nil
}

func (s *NoteStore) ListByGuitar(ctx context.Context, guitarID uuid.UUID) ([]models.Note, error) {
	query := `
		SELECT id, guitar_id, author_uid, body, visible_to_client, created_at
		FROM notes
		WHERE guitar_id = $1
		ORDER BY created_at`
	return s.list(ctx, query, guitarID)
}

func (s *NoteStore) ListClientVisible(ctx context.Context) ([]models.Note, error) {
	query := `
		SELECT id, guitar_id, author_uid, body, visible_to_client, created_at
		FROM notes
		WHERE visible_to_client
		ORDER BY created_at`
	return s.list(ctx, query)
}

func (s *NoteStore) list(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(
			&n.ID,
			&n.GuitarID,
			&n.AuthorUID,
			&n.Body,
			&n.VisibleToClient,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}
