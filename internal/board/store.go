// Package board mirrors one run's stages and guitars for a Kanban view.
package board

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
)

// State is a copy of the board at one instant.
type State struct {
	RunID   uuid.UUID       `json:"run_id"`
	Stages  []models.Stage  `json:"stages"`
	Guitars []models.Guitar `json:"guitars"`
}

// Store is an explicitly owned board mirror. Whole lists are replaced by
// subscription callbacks; MoveGuitar is the only targeted mutation and is
// local only. The next guitars snapshot overwrites it either way.
type Store struct {
	mu      sync.RWMutex
	runID   uuid.UUID
	stages  []models.Stage
	guitars []models.Guitar
	now     func() time.Time
}

type StoreOption func(*Store)

// WithClock overrides the time source used for UpdatedAt bumps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		stages:  make([]models.Stage, 0),
		guitars: make([]models.Guitar, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) SetRun(runID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
}

func (s *Store) SetStages(stages []models.Stage) {
	cp := append(make([]models.Stage, 0, len(stages)), stages...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = cp
}

func (s *Store) SetGuitars(guitars []models.Guitar) {
	cp := make([]models.Guitar, len(guitars))
	for i, g := range guitars {
		cp[i] = cloneGuitar(g)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guitars = cp
}

// MoveGuitar points one guitar at stageID and bumps its UpdatedAt. Every
// other guitar is left as it was. Reports false if the guitar is not on
// the board. Any stage may follow any other.
func (s *Store) MoveGuitar(guitarID, stageID uuid.UUID) bool {
	_, ok := s.move(guitarID, stageID)
	return ok
}

// move is MoveGuitar that also hands back the guitar as written.
func (s *Store) move(guitarID, stageID uuid.UUID) (models.Guitar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guitars {
		if s.guitars[i].ID != guitarID {
			continue
		}
		sid := stageID
		s.guitars[i].StageID = &sid
		s.guitars[i].UpdatedAt = s.now()
		return cloneGuitar(s.guitars[i]), true
	}
	return models.Guitar{}, false
}

// Guitar returns a copy of one guitar on the board.
func (s *Store) Guitar(guitarID uuid.UUID) (models.Guitar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guitars {
		if g.ID == guitarID {
			return cloneGuitar(g), true
		}
	}
	return models.Guitar{}, false
}

// rollback puts prev back only while the guitar still holds exactly what
// a move wrote as applied. A snapshot that landed since wins.
func (s *Store) rollback(prev, applied models.Guitar) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.guitars {
		g := &s.guitars[i]
		if g.ID != prev.ID {
			continue
		}
		if !sameStage(g.StageID, applied.StageID) || !g.UpdatedAt.Equal(applied.UpdatedAt) {
			return false
		}
		*g = prev
		return true
	}
	return false
}

func sameStage(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Snapshot returns a deep copy of the board.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{
		RunID:   s.runID,
		Stages:  append(make([]models.Stage, 0, len(s.stages)), s.stages...),
		Guitars: make([]models.Guitar, len(s.guitars)),
	}
	for i, g := range s.guitars {
		st.Guitars[i] = cloneGuitar(g)
	}
	return st
}

func cloneGuitar(g models.Guitar) models.Guitar {
	if g.StageID != nil {
		sid := *g.StageID
		g.StageID = &sid
	}
	if g.ClientUID != nil {
		cid := *g.ClientUID
		g.ClientUID = &cid
	}
	return g
}
