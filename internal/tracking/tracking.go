// Package tracking owns the production write paths. Every write publishes
// the change topics its live queries listen on once it has committed.
package tracking

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

// NoteListener is told about every stored note.
type NoteListener interface {
	NoteAdded(ctx context.Context, note models.Note) (bool, error)
}

type Service struct {
	runs      repository.RunRepository
	guitars   repository.GuitarRepository
	notes     repository.NoteRepository
	onNote    NoteListener
	publisher *live.Publisher
	stages    []string
	logger    *zap.Logger
}

func NewService(
	runs repository.RunRepository,
	guitars repository.GuitarRepository,
	notes repository.NoteRepository,
	onNote NoteListener,
	publisher *live.Publisher,
	defaultStages []string,
	logger *zap.Logger,
) *Service {
	return &Service{
		runs:      runs,
		guitars:   guitars,
		notes:     notes,
		onNote:    onNote,
		publisher: publisher,
		stages:    defaultStages,
		logger:    logger,
	}
}

// CreateRun creates a run with the default production stages.
func (s *Service) CreateRun(ctx context.Context, name string) (*models.Run, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("name is required")
	}
	run, err := s.runs.Create(ctx, name, s.stages)
	if err != nil {
		return nil, s.internal("create run", err)
	}
	s.publisher.Changed(ctx, live.TopicRuns, live.RunStagesTopic(run.ID.String()))
	return run, nil
}

func (s *Service) AddStage(ctx context.Context, runID uuid.UUID, name string) (*models.Stage, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("name is required")
	}
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	st, err := s.runs.AddStage(ctx, runID, name)
	if err != nil {
		return nil, s.internal("add stage", err)
	}
	s.publisher.Changed(ctx, live.RunStagesTopic(runID.String()))
	return st, nil
}

// CreateGuitar adds a guitar to a run, optionally already on a stage of
// that run.
func (s *Service) CreateGuitar(ctx context.Context, g models.Guitar) (*models.Guitar, error) {
	if g.Serial == "" {
		return nil, apperr.InvalidArgument("serial is required")
	}
	if err := s.requireRun(ctx, g.RunID); err != nil {
		return nil, err
	}
	if g.StageID != nil {
		if err := s.requireStageOf(ctx, g.RunID, *g.StageID); err != nil {
			return nil, err
		}
	}

	created, err := s.guitars.Create(ctx, g)
	if err != nil {
		return nil, s.internal("create guitar", err)
	}
	s.publishGuitar(ctx, created)
	return created, nil
}

// MoveGuitar is the durable stage move. The target stage must belong to
// the guitar's run; beyond that any stage may follow any other.
func (s *Service) MoveGuitar(ctx context.Context, guitarID, stageID uuid.UUID) (*models.Guitar, error) {
	g, err := s.guitars.GetByID(ctx, guitarID)
	if err != nil {
		return nil, s.internal("load guitar", err)
	}
	if g == nil {
		return nil, apperr.NotFound("guitar not found")
	}
	if err := s.requireStageOf(ctx, g.RunID, stageID); err != nil {
		return nil, err
	}

	moved, err := s.guitars.MoveToStage(ctx, guitarID, stageID)
	if err != nil {
		return nil, s.internal("move guitar", err)
	}
	if moved == nil {
		return nil, apperr.NotFound("guitar not found")
	}
	s.publishGuitar(ctx, moved)
	return moved, nil
}

// AddNote stores a note and hands it to the note listener. A listener
// failure is logged; the note itself is already stored.
func (s *Service) AddNote(ctx context.Context, guitarID, author uuid.UUID, body string, visibleToClient bool) (*models.Note, error) {
	if body == "" {
		return nil, apperr.InvalidArgument("body is required")
	}
	g, err := s.guitars.GetByID(ctx, guitarID)
	if err != nil {
		return nil, s.internal("load guitar", err)
	}
	if g == nil {
		return nil, apperr.NotFound("guitar not found")
	}

	note, err := s.notes.Create(ctx, guitarID, author, body, visibleToClient)
	if err != nil {
		return nil, s.internal("create note", err)
	}
	s.publisher.Changed(ctx, live.GuitarNotesTopic(guitarID.String()))

	if s.onNote != nil {
		if _, err := s.onNote.NoteAdded(ctx, *note); err != nil {
			s.logger.Error("note fan-out failed", zap.String("note_id", note.ID.String()), zap.Error(err))
		}
	}
	return note, nil
}

func (s *Service) requireRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return s.internal("load run", err)
	}
	if run == nil {
		return apperr.NotFound("run not found")
	}
	return nil
}

func (s *Service) requireStageOf(ctx context.Context, runID, stageID uuid.UUID) error {
	st, err := s.runs.GetStage(ctx, stageID)
	if err != nil {
		return s.internal("load stage", err)
	}
	if st == nil || st.RunID != runID {
		return apperr.InvalidArgument("stage does not belong to the guitar's run")
	}
	return nil
}

func (s *Service) publishGuitar(ctx context.Context, g *models.Guitar) {
	topics := []string{live.RunGuitarsTopic(g.RunID.String())}
	if g.ClientUID != nil {
		topics = append(topics, live.ClientGuitarsTopic(g.ClientUID.String()))
	}
	s.publisher.Changed(ctx, topics...)
}

func (s *Service) internal(op string, err error) error {
	s.logger.Error("tracking write failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal(op+" failed", err)
}
