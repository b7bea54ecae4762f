// Package live turns store writes into pushed query snapshots.
//
// Writers publish a change signal on a topic after their write commits.
// A subscription listens on its topic and re-runs its scoped query on
// every signal, handing the freshly materialised list to its callback.
package live

import (
	"context"
	"errors"
)

// ErrBusClosed is reported when a listener's channel closes while the
// subscription is still open.
var ErrBusClosed = errors.New("change bus listener closed")

// Listener delivers change signals for one topic. Signals carry no data
// and coalesce: a pending signal absorbs later ones until it is read.
type Listener interface {
	C() <-chan struct{}
	Close() error
}

// Bus is the change-signal transport.
type Bus interface {
	Publish(ctx context.Context, topic string) error

	// Listen returns once the listener is registered, so a signal
	// published after Listen returns is never missed.
	Listen(ctx context.Context, topic string) (Listener, error)
}

// signal does a non-blocking send on a 1-buffered channel.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
