package live

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "fretboard:changes:"

// RedisBus carries change signals over Redis pub/sub so every server
// instance sees writes made by every other one.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	if err := b.client.Publish(ctx, channelPrefix+topic, "changed").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Listen(ctx context.Context, topic string) (Listener, error) {
	ps := b.client.Subscribe(ctx, channelPrefix+topic)

	// Receive blocks until Redis confirms the subscription.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	l := &redisListener{ps: ps, ch: make(chan struct{}, 1)}
	go l.pump()
	return l, nil
}

type redisListener struct {
	ps   *redis.PubSub
	ch   chan struct{}
	once sync.Once
}

func (l *redisListener) pump() {
	defer close(l.ch)
	for range l.ps.Channel() {
		signal(l.ch)
	}
}

func (l *redisListener) C() <-chan struct{} { return l.ch }

func (l *redisListener) Close() error {
	var err error
	l.once.Do(func() { err = l.ps.Close() })
	return err
}
