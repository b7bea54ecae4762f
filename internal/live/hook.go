package live

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LoadFunc materialises the scoped query. It must return a non-nil slice
// on success.
type LoadFunc[T any] func(ctx context.Context, scope string) ([]T, error)

// Hook is one kind of live query, e.g. "guitars of run X".
type Hook[T any] struct {
	Name  string
	Topic func(scope string) string
	Load  LoadFunc[T]

	bus    Bus
	logger *zap.Logger
}

func NewHook[T any](name string, bus Bus, logger *zap.Logger, topic func(string) string, load LoadFunc[T]) *Hook[T] {
	return &Hook[T]{
		Name:   name,
		Topic:  topic,
		Load:   load,
		bus:    bus,
		logger: logger,
	}
}

type subOptions struct {
	onError func(error)
}

type Option func(*subOptions)

// WithErrorHandler receives snapshot load failures and bus failures.
// Without it they are logged. Either way the subscription stays open and
// nothing is delivered for the failed snapshot.
func WithErrorHandler(fn func(error)) Option {
	return func(o *subOptions) { o.onError = fn }
}

// Subscribe opens a live query for scope and calls onSnapshot with every
// materialised result, starting with the current one. Callbacks run on
// the subscription's own goroutine, one at a time.
//
// An empty scope delivers one empty snapshot and touches neither the
// store nor the bus.
func (h *Hook[T]) Subscribe(ctx context.Context, scope string, onSnapshot func([]T), opts ...Option) *Subscription {
	return h.SubscribeFiltered(ctx, scope, nil, onSnapshot, opts...)
}

// SubscribeFiltered is Subscribe with a post-snapshot filter; items for
// which keep returns false are dropped before delivery.
func (h *Hook[T]) SubscribeFiltered(ctx context.Context, scope string, keep func(T) bool, onSnapshot func([]T), opts ...Option) *Subscription {
	if scope == "" {
		onSnapshot(make([]T, 0))
		return closedSubscription()
	}

	o := subOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onError == nil {
		o.onError = func(err error) {
			h.logger.Warn("live query failed",
				zap.String("hook", h.Name),
				zap.String("scope", scope),
				zap.Error(err),
			)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	// Listen before the first load so a write landing between the two
	// still triggers a refresh.
	listener, err := h.bus.Listen(ctx, h.Topic(scope))
	if err != nil {
		o.onError(err)
		listener = nil
	}

	go func() {
		defer close(sub.done)
		var changes <-chan struct{}
		if listener != nil {
			defer listener.Close()
			changes = listener.C()
		}

		deliver := func() {
			items, err := h.Load(ctx, scope)
			if err != nil {
				if ctx.Err() == nil {
					o.onError(err)
				}
				return
			}
			if keep != nil {
				items = filter(items, keep)
			}
			if ctx.Err() == nil {
				onSnapshot(items)
			}
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					o.onError(ErrBusClosed)
					changes = nil
					continue
				}
				deliver()
			}
		}
	}()

	return sub
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func closedSubscription() *Subscription {
	done := make(chan struct{})
	close(done)
	return &Subscription{cancel: func() {}, done: done}
}

// Unsubscribe stops the live query and waits for its goroutine to exit.
// Calls after the first are no-ops. It must not be called from inside
// the subscription's own callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the subscription has fully stopped, including when
// its parent context was cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
