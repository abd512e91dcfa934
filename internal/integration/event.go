package integration

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics published by the integration layer.
const (
	TopicActivated   = "snakemake.activated"
	TopicDeactivated = "snakemake.deactivated"
	TopicInvalidated = "snakemake.tasks.invalidated"
	TopicDiscovered  = "snakemake.tasks.discovered"
)

// EventPublisher defines the interface for publishing integration events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(topic string, data map[string]any)
}

// EventBus is a thread-safe publish-subscribe bus.
//
// Topics use dot notation. A subscription ending in ".*" matches every
// topic below that prefix, so "snakemake.tasks.*" receives both
// invalidation and discovery events.
type EventBus struct {
	mu     sync.RWMutex
	byID   map[string]*subscription
	order  []string
	logger *zap.Logger
	closed atomic.Bool
}

type subscription struct {
	id      string
	topic   string
	handler func(data map[string]any)
}

// NewEventBus creates a new event bus. A nil logger disables logging.
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		byID:   make(map[string]*subscription),
		logger: logger,
	}
}

// Subscribe adds a handler for topic and returns its subscription ID.
// It returns "" once the bus is closed.
func (b *EventBus) Subscribe(topic string, handler func(data map[string]any)) string {
	if b.closed.Load() {
		return ""
	}

	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		handler: handler,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[sub.id] = sub
	b.order = append(b.order, sub.id)
	return sub.id
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription existed.
func (b *EventBus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byID[id]; !ok {
		return false
	}
	delete(b.byID, id)
	for i, sid := range b.order {
		if sid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// Publish calls every matching handler synchronously, in subscription
// order. A panicking handler is logged and skipped.
func (b *EventBus) Publish(topic string, data map[string]any) {
	if b.closed.Load() {
		return
	}

	for _, handler := range b.matching(topic) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						zap.String("topic", topic),
						zap.Any("panic", r),
					)
				}
			}()
			handler(data)
		}()
	}
}

// Close shuts down the event bus. Later calls are no-ops.
func (b *EventBus) Close() {
	if b.closed.Swap(true) {
		return
	}

	b.mu.Lock()
	b.byID = make(map[string]*subscription)
	b.order = nil
	b.mu.Unlock()
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *EventBus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

func (b *EventBus) matching(topic string) []func(data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var handlers []func(data map[string]any)
	for _, id := range b.order {
		sub := b.byID[id]
		if matchTopic(sub.topic, topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	return handlers
}

// matchTopic reports whether topic satisfies pattern.
func matchTopic(pattern, topic string) bool {
	if len(pattern) < 2 || pattern[len(pattern)-2:] != ".*" {
		return pattern == topic
	}

	prefix := pattern[:len(pattern)-2]
	if len(topic) <= len(prefix) {
		return false
	}
	return topic[:len(prefix)] == prefix && topic[len(prefix)] == '.'
}

var _ EventPublisher = (*EventBus)(nil)
