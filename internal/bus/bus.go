// Package bus implements the in-memory event core: an unbounded FIFO queue
// drained by a single consumer goroutine. Handlers for a topic run
// synchronously, in subscription order, before the next event is dequeued,
// so state touched only from handlers needs no locking.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fxpilot/advisor/models"
)

// Handler processes one event.
type Handler func(models.Event)

// Bus is a FIFO, single-consumer pub/sub core.
type Bus struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []models.Event
	handlers map[models.Topic][]Handler
	closed   bool
	logger   zerolog.Logger
}

// New creates an empty bus.
func New() *Bus {
	b := &Bus{
		handlers: make(map[models.Topic][]Handler),
		logger:   log.With().Str("component", "bus").Logger(),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers a handler for a topic. Handlers are invoked in
// subscription order.
func (b *Bus) Subscribe(topic models.Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish enqueues an event. It never blocks; the queue is unbounded.
func (b *Bus) Publish(event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.queue = append(b.queue, event)
	b.cond.Signal()
}

// PublishNow wraps a payload in an event stamped with the current time.
func (b *Bus) PublishNow(topic models.Topic, payload any) {
	b.Publish(models.Event{Topic: topic, Payload: payload, Timestamp: time.Now().UTC()})
}

// Run drains the queue until the context is cancelled. Delivery order equals
// publish order; no two events are ever processed concurrently.
func (b *Bus) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.closed = true
		b.cond.Broadcast()
		b.mu.Unlock()
	}()

	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.closed {
			b.cond.Wait()
		}
		if len(b.queue) == 0 && b.closed {
			b.mu.Unlock()
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		handlers := b.handlers[event.Topic]
		b.mu.Unlock()

		for _, handler := range handlers {
			b.dispatch(event, handler)
		}
	}
}

// dispatch isolates handler panics so one failing subscriber cannot stop
// the bus or starve its siblings.
func (b *Bus) dispatch(event models.Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("topic", string(event.Topic)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	handler(event)
}
