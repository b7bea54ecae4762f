package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// recorder collects delivered snapshots.
type recorder[T any] struct {
	mu    sync.Mutex
	snaps [][]T
}

func (r *recorder[T]) add(items []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, items)
}

func (r *recorder[T]) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder[T]) last() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

// countingBus wraps MemoryBus and counts Listen calls.
type countingBus struct {
	*MemoryBus
	listens atomic.Int32
}

func (b *countingBus) Listen(ctx context.Context, topic string) (Listener, error) {
	b.listens.Add(1)
	return b.MemoryBus.Listen(ctx, topic)
}

func TestSubscribe_EmptyScopeYieldsEmptyWithoutIO(t *testing.T) {
	bus := &countingBus{MemoryBus: NewMemoryBus()}
	var loads atomic.Int32
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) {
			loads.Add(1)
			return []string{"x"}, nil
		})

	var got []string
	called := false
	sub := hook.Subscribe(context.Background(), "", func(items []string) {
		called = true
		got = items
	})
	sub.Unsubscribe()

	assert.True(t, called, "empty scope still delivers a snapshot")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, loads.Load(), "no store call")
	assert.Zero(t, bus.listens.Load(), "no bus call")
}

func TestSubscribe_InitialAndChangeSnapshots(t *testing.T) {
	bus := NewMemoryBus()
	var mu sync.Mutex
	data := []string{"a"}
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), data...), nil
		})

	rec := &recorder[string]{}
	sub := hook.Subscribe(context.Background(), "k", rec.add)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.last())

	mu.Lock()
	data = append(data, "b")
	mu.Unlock()
	require.NoError(t, bus.Publish(context.Background(), "t:k"))

	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, rec.last())
}

func TestSubscribe_OtherTopicDoesNotRefresh(t *testing.T) {
	bus := NewMemoryBus()
	var loads atomic.Int32
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) {
			loads.Add(1)
			return []string{}, nil
		})

	sub := hook.Subscribe(context.Background(), "k", func([]string) {})
	require.Eventually(t, func() bool { return loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), "t:other"))
	time.Sleep(20 * time.Millisecond)
	sub.Unsubscribe()

	assert.Equal(t, int32(1), loads.Load())
}

func TestSubscribe_FilterAppliedAfterSnapshot(t *testing.T) {
	bus := NewMemoryBus()
	hook := NewHook[models.Note]("notes", bus, zap.NewNop(), GuitarNotesTopic,
		func(context.Context, string) ([]models.Note, error) {
			return []models.Note{
				{Body: "internal", VisibleToClient: false},
				{Body: "neck glued", VisibleToClient: true},
			}, nil
		})
	hooks := &Hooks{GuitarNotes: hook}

	rec := &recorder[models.Note]{}
	sub := hooks.SubscribeGuitarNotes(context.Background(), uuid.NewString(), true, rec.add)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, rec.last(), 1)
	assert.Equal(t, "neck glued", rec.last()[0].Body)
}

func TestSubscribe_LoadErrorGoesToHandler(t *testing.T) {
	bus := NewMemoryBus()
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) {
			return nil, errors.New("db down")
		})

	errs := make(chan error, 1)
	delivered := false
	sub := hook.Subscribe(context.Background(), "k",
		func([]string) { delivered = true },
		WithErrorHandler(func(err error) { errs <- err }))

	select {
	case err := <-errs:
		assert.EqualError(t, err, "db down")
	case <-time.After(time.Second):
		t.Fatal("error handler not called")
	}
	sub.Unsubscribe()
	assert.False(t, delivered)
}

func TestUnsubscribe_ReleasesListenerAndIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewMemoryBus()
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) { return []string{}, nil })

	sub := hook.Subscribe(context.Background(), "k", func([]string) {})
	assert.Equal(t, 1, bus.Listeners("t:k"))

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, bus.Listeners("t:k"))
	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription not done after Unsubscribe")
	}
}

func TestSubscribe_ParentContextCancelStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	bus := NewMemoryBus()
	hook := NewHook[string]("test", bus, zap.NewNop(),
		func(s string) string { return "t:" + s },
		func(context.Context, string) ([]string, error) { return []string{}, nil })

	ctx, cancel := context.WithCancel(context.Background())
	sub := hook.Subscribe(ctx, "k", func([]string) {})
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop on context cancel")
	}
	sub.Unsubscribe()
}

func TestByUUID_InvalidScopeIsEmpty(t *testing.T) {
	called := false
	load := byUUID(func(context.Context, uuid.UUID) ([]models.Guitar, error) {
		called = true
		return nil, nil
	})

	items, err := load(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.False(t, called)
}
