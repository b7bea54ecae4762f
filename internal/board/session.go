package board

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/models"
	"golang.org/x/sync/errgroup"
)

// Mover performs the durable stage move.
type Mover interface {
	MoveGuitar(ctx context.Context, guitarID, stageID uuid.UUID) (*models.Guitar, error)
}

// ErrGuitarNotOnBoard is returned by Move for a guitar the board does not hold.
var ErrGuitarNotOnBoard = fmt.Errorf("guitar is not on this board")

// Session feeds one Store from the stage and guitar subscriptions of a
// run and routes moves through it.
type Session struct {
	store   *Store
	mover   Mover
	stages  *live.Subscription
	guitars *live.Subscription

	// onChange is called after every store update, possibly from more
	// than one goroutine at a time.
	onChange func(State)
}

// Open subscribes store to runID's stages and guitars. It returns once
// both initial snapshots have landed in the store. A snapshot failure
// before that point fails Open; later failures go to onError.
func Open(
	ctx context.Context,
	hooks *live.Hooks,
	store *Store,
	mover Mover,
	runID uuid.UUID,
	onChange func(State),
	onError func(error),
) (*Session, error) {
	if onChange == nil {
		onChange = func(State) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	store.SetRun(runID)
	s := &Session{store: store, mover: mover, onChange: onChange}

	stagesW := newWaiter(onError)
	guitarsW := newWaiter(onError)
	scope := runID.String()

	s.stages = hooks.RunStages.Subscribe(ctx, scope, func(stages []models.Stage) {
		store.SetStages(stages)
		stagesW.markReady()
		s.onChange(store.Snapshot())
	}, live.WithErrorHandler(stagesW.fail))
	s.guitars = hooks.RunGuitars.Subscribe(ctx, scope, func(guitars []models.Guitar) {
		store.SetGuitars(guitars)
		guitarsW.markReady()
		s.onChange(store.Snapshot())
	}, live.WithErrorHandler(guitarsW.fail))

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range []*waiter{stagesW, guitarsW} {
		g.Go(func() error { return w.wait(gctx) })
	}
	if err := g.Wait(); err != nil {
		s.Close()
		return nil, fmt.Errorf("open board %s: %w", runID, err)
	}
	return s, nil
}

// waiter tracks the first snapshot of one subscription.
type waiter struct {
	ready   chan struct{}
	failed  chan error
	onError func(error)
}

func newWaiter(onError func(error)) *waiter {
	return &waiter{
		ready:   make(chan struct{}),
		failed:  make(chan error, 1),
		onError: onError,
	}
}

// markReady is only ever called from the subscription's own goroutine.
func (w *waiter) markReady() {
	select {
	case <-w.ready:
	default:
		close(w.ready)
	}
}

func (w *waiter) fail(err error) {
	select {
	case w.failed <- err:
	default:
	}
	w.onError(err)
}

func (w *waiter) wait(ctx context.Context) error {
	select {
	case <-w.ready:
		return nil
	case err := <-w.failed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Move applies the stage change to the local board first, then writes it
// durably. When the durable write fails the local change is rolled back,
// unless a snapshot has replaced the guitar in the meantime, and the error
// returned.
func (s *Session) Move(ctx context.Context, guitarID, stageID uuid.UUID) error {
	prev, ok := s.store.Guitar(guitarID)
	if !ok {
		return ErrGuitarNotOnBoard
	}
	applied, ok := s.store.move(guitarID, stageID)
	if !ok {
		return ErrGuitarNotOnBoard
	}
	s.onChange(s.store.Snapshot())

	if _, err := s.mover.MoveGuitar(ctx, guitarID, stageID); err != nil {
		if s.store.rollback(prev, applied) {
			s.onChange(s.store.Snapshot())
		}
		return err
	}
	return nil
}

func (s *Session) Store() *Store { return s.store }

// Close releases both subscriptions.
func (s *Session) Close() {
	s.stages.Unsubscribe()
	s.guitars.Unsubscribe()
}
