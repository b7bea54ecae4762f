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

type RunStore struct {
	pool *pgxpool.Pool
}

func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Create inserts the run and its initial stages in one transaction, so a
// run is never visible without its workflow.
func (s *RunStore) Create(ctx context.Context, name string, stageNames []string) (*models.Run, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create run: %w", err)
	}
	defer tx.Rollback(ctx)

	var run models.Run
	err = tx.QueryRow(ctx, `
		INSERT INTO runs (name, created_at, updated_at)
		VALUES ($1, now(), now())
		RETURNING id, name, created_at, updated_at`, name).Scan(
		&run.ID,
		&run.Name,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for i, stageName := range stageNames {
		_, err := tx.Exec(ctx, `
			INSERT INTO stages (run_id, name, stage_order, created_at)
			VALUES ($1, $2, $3, now())`, run.ID, stageName, i+1)
		if err != nil {
			return nil, fmt.Errorf("insert stage %q: %w", stageName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create run: %w", err)
	}
	return &run, nil
}

func (s *RunStore) GetByID(ctx context.Context, runID uuid.UUID) (*models.Run, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM runs
		WHERE id = $1`

	var run models.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.Name,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (s *RunStore) List(ctx context.Context) ([]models.Run, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM runs
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.Run, 0)
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func (s *RunStore) AddStage(ctx context.Context, runID uuid.UUID, name string) (*models.Stage, error) {
	query := `
		INSERT INTO stages (run_id, name, stage_order, created_at)
		SELECT $1, $2, COALESCE(MAX(stage_order), 0) + 1, now()
		FROM stages WHERE run_id = $1
		RETURNING id, run_id, name, stage_order, created_at`

	var st models.Stage
	err := s.pool.QueryRow(ctx, query, runID, name).Scan(
		&st.ID,
		&st.RunID,
		&st.Name,
		&st.Order,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stage: %w", err)
	}
	return &st, nil
}

func (s *RunStore) ListStages(ctx context.Context, runID uuid.UUID) ([]models.Stage, error) {
	query := `
		SELECT id, run_id, name, stage_order, created_at
		FROM stages
		WHERE run_id = $1
		ORDER BY stage_order`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]models.Stage, 0)
	for rows.Next() {
		var st models.Stage
		if err := rows.Scan(&st.ID, &st.RunID, &st.Name, &st.Order, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}

	return stages, nil
}

func (s *RunStore) GetStage(ctx context.Context, stageID uuid.UUID) (*models.Stage, error) {
	query := `
		SELECT id, run_id, name, stage_order, created_at
		FROM stages
		WHERE id = $1`

	var st models.Stage
	err := s.pool.QueryRow(ctx, query, stageID).Scan(&st.ID, &st.RunID, &st.Name, &st.Order, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return &st, nil
}
