package board

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestStore_MoveGuitarTouchesOnlyTarget(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	then := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	later := then.Add(time.Hour)

	store := NewStore(WithClock(func() time.Time { return later }))
	a := models.Guitar{ID: uuid.New(), StageID: ptr(s1), Serial: "A-1", UpdatedAt: then}
	b := models.Guitar{ID: uuid.New(), StageID: ptr(s1), Serial: "A-2", UpdatedAt: then}
	store.SetGuitars([]models.Guitar{a, b})

	require.True(t, store.MoveGuitar(a.ID, s2))

	snap := store.Snapshot()
	require.Len(t, snap.Guitars, 2)
	assert.Equal(t, s2, *snap.Guitars[0].StageID)
	assert.Equal(t, later, snap.Guitars[0].UpdatedAt)
	assert.Equal(t, b, snap.Guitars[1])
}

func TestStore_MoveUnknownGuitar(t *testing.T) {
	store := NewStore()
	store.SetGuitars([]models.Guitar{{ID: uuid.New()}})
	assert.False(t, store.MoveGuitar(uuid.New(), uuid.New()))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s1 := uuid.New()
	store := NewStore()
	g := models.Guitar{ID: uuid.New(), StageID: ptr(s1)}
	store.SetGuitars([]models.Guitar{g})

	snap := store.Snapshot()
	*snap.Guitars[0].StageID = uuid.New()
	snap.Guitars[0].Serial = "tampered"

	again := store.Snapshot()
	assert.Equal(t, s1, *again.Guitars[0].StageID)
	assert.Empty(t, again.Guitars[0].Serial)
}

func TestStore_SetGuitarsReplacesOptimisticMove(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	store := NewStore()
	g := models.Guitar{ID: uuid.New(), StageID: ptr(s1)}
	store.SetGuitars([]models.Guitar{g})
	store.MoveGuitar(g.ID, s2)

	// Authoritative snapshot still has the old stage.
	store.SetGuitars([]models.Guitar{g})

	got, ok := store.Guitar(g.ID)
	require.True(t, ok)
	assert.Equal(t, s1, *got.StageID)
}

func TestStore_SetRunAndStages(t *testing.T) {
	runID := uuid.New()
	store := NewStore()
	store.SetRun(runID)
	store.SetStages([]models.Stage{{Name: "Body"}, {Name: "Neck"}})

	snap := store.Snapshot()
	assert.Equal(t, runID, snap.RunID)
	assert.Equal(t, "Body", snap.Stages[0].Name)
	assert.NotNil(t, NewStore().Snapshot().Guitars)
}

func TestStore_RollbackRestoresOwnMove(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	g := models.Guitar{ID: uuid.New(), StageID: ptr(s1)}
	store := NewStore(WithClock(func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }))
	store.SetGuitars([]models.Guitar{g})

	prev, _ := store.Guitar(g.ID)
	applied, ok := store.move(g.ID, s2)
	require.True(t, ok)

	assert.True(t, store.rollback(prev, applied))
	got, _ := store.Guitar(g.ID)
	assert.Equal(t, g, got)
}

func TestStore_RollbackSkippedAfterSnapshot(t *testing.T) {
	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()
	g := models.Guitar{ID: uuid.New(), StageID: ptr(s1)}
	store := NewStore()
	store.SetGuitars([]models.Guitar{g})

	prev, _ := store.Guitar(g.ID)
	applied, ok := store.move(g.ID, s2)
	require.True(t, ok)

	fresh := g
	fresh.StageID = ptr(s3)
	fresh.UpdatedAt = applied.UpdatedAt.Add(time.Second)
	store.SetGuitars([]models.Guitar{fresh})

	assert.False(t, store.rollback(prev, applied))
	got, _ := store.Guitar(g.ID)
	assert.Equal(t, s3, *got.StageID)
}
