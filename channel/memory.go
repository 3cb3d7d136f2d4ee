package channel

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped on the floor. Publish never blocks: an event that finds a
// subscriber's buffer full is dropped for that subscriber and not redelivered.
const subscriberBuffer = 256

// MemoryBus is an in-process Bus for tests and single-node deployments.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	logger *zap.Logger
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBus{
		subs:   make(map[string][]chan Event),
		logger: logger.With(zap.String("component", "channel")),
	}
}

// Publish delivers the event to every current subscriber of the run's topic.
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[Topic(ev.WorkflowRunID)] {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("subscriber lagging, dropping event",
				zap.String("run_id", ev.WorkflowRunID),
				zap.String("node_id", ev.NodeID),
			)
		}
	}
	return nil
}

// Subscribe registers a new subscriber for the run's topic.
func (b *MemoryBus) Subscribe(ctx context.Context, workflowRunID string) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)
	topic := Topic(workflowRunID)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
	}
	return ch, cancel, nil
}
