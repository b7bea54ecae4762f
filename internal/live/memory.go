package live

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus for tests and single-instance tools.
type MemoryBus struct {
	mu        sync.Mutex
	listeners map[string]map[*memoryListener]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{listeners: make(map[string]map[*memoryListener]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for l := range b.listeners[topic] {
		signal(l.ch)
	}
	return nil
}

func (b *MemoryBus) Listen(_ context.Context, topic string) (Listener, error) {
	l := &memoryListener{bus: b, topic: topic, ch: make(chan struct{}, 1)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners[topic] == nil {
		b.listeners[topic] = make(map[*memoryListener]struct{})
	}
	b.listeners[topic][l] = struct{}{}
	return l, nil
}

// Listeners reports how many listeners are registered on topic.
func (b *MemoryBus) Listeners(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[topic])
}

type memoryListener struct {
	bus   *MemoryBus
	topic string
	ch    chan struct{}
}

func (l *memoryListener) C() <-chan struct{} { return l.ch }

func (l *memoryListener) Close() error {
	l.bus.mu.Lock()
	defer l.bus.mu.Unlock()
	delete(l.bus.listeners[l.topic], l)
	if len(l.bus.listeners[l.topic]) == 0 {
		delete(l.bus.listeners, l.topic)
	}
	return nil
}
