package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/fretboard/internal/models"
)

type GuitarStore struct {
	pool *pgxpool.Pool
}

func NewGuitarStore(pool *pgxpool.Pool) *GuitarStore {
	return &GuitarStore{pool: pool}
}

const guitarColumns = `id, run_id, stage_id, client_uid, serial, model, created_at, updated_at`

func scanGuitar(row pgx.Row) (*models.Guitar, error) {
	var g models.Guitar
	err := row.Scan(
		&g.ID,
		&g.RunID,
		&g.StageID,
		&g.ClientUID,
		&g.Serial,
		&g.Model,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GuitarStore) Create(ctx context.Context, g models.Guitar) (*models.Guitar, error) {
	query := `
		INSERT INTO guitars (run_id, stage_id, client_uid, serial, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING ` + guitarColumns

	created, err := scanGuitar(s.pool.QueryRow(ctx, query, g.RunID, g.StageID, g.ClientUID, g.Serial, g.Model))
	if err != nil {
		return nil, fmt.Errorf("insert guitar: %w", err)
	}
	return created, nil
}

func (s *GuitarStore) GetByID(ctx context.Context, guitarID uuid.UUID) (*models.Guitar, error) {
	query := `SELECT ` + guitarColumns + ` FROM guitars WHERE id = $1`

	g, err := scanGuitar(s.pool.QueryRow(ctx, query, guitarID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guitar: %w", err)
	}
	return g, nil
}

func (s *GuitarStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]models.Guitar, error) {
	query := `SELECT ` + guitarColumns + ` FROM guitars WHERE run_id = $1 ORDER BY serial`
	return s.list(ctx, "list run guitars", query, runID)
}

func (s *GuitarStore) ListByClient(ctx context.Context, clientUID uuid.UUID) ([]models.Guitar, error) {
	query := `SELECT ` + guitarColumns + ` FROM guitars WHERE client_uid = $1 ORDER BY created_at`
	return s.list(ctx, "list client guitars", query, clientUID)
}

func (s *GuitarStore) list(ctx context.Context, op, query string, args ...any) ([]models.Guitar, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	guitars := make([]models.Guitar, 0)
	for rows.Next() {
		g, err := scanGuitar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guitar: %w", err)
		}
		guitars = append(guitars, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guitars: %w", err)
	}

	return guitars, nil
}

// MoveToStage is a single-row update; the store's row atomicity is the
// only guarantee. Concurrent moves resolve last-write-wins.
func (s *GuitarStore) MoveToStage(ctx context.Context, guitarID, stageID uuid.UUID) (*models.Guitar, error) {
	query := `
		UPDATE guitars SET stage_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + guitarColumns

	g, err := scanGuitar(s.pool.QueryRow(ctx, query, guitarID, stageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("move guitar: %w", err)
	}
	return g, nil
}
