package live

import (
	"context"

	"go.uber.org/zap"
)

// Publisher announces committed writes. A failed publish is logged and
// swallowed: the write already happened, subscribers just miss a refresh
// until the next change on that topic.
type Publisher struct {
	bus    Bus
	logger *zap.Logger
}

func NewPublisher(bus Bus, logger *zap.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

func (p *Publisher) Changed(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := p.bus.Publish(ctx, topic); err != nil {
			p.logger.Warn("publish change failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}
