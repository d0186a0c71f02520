// Package events buffers outbound analytics events between the wizard and
// its dispatcher.
package events

import (
	"context"

	"github.com/stepgate/stepgate/pkg/api"
)

// Queue is the transport between event producers and the dispatcher.
type Queue interface {
	Enqueue(ctx context.Context, e api.OutboundEvent) error
	Dequeue(ctx context.Context) (*api.OutboundEvent, error)
	Len() int
}

// InMemoryQueue is a Queue backed by a buffered channel. It is safe for
// concurrent use.
type InMemoryQueue struct {
	ch chan api.OutboundEvent
}

// NewInMemoryQueue creates a new queue with the given capacity. For tests
// and small deployments, a modest capacity (e.g. 1024) is fine.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{
		ch: make(chan api.OutboundEvent, capacity),
	}
}

// Ensure InMemoryQueue implements Queue.
var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, e api.OutboundEvent) error {
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*api.OutboundEvent, error) {
	select {
	case e := <-q.ch:
		return &e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *InMemoryQueue) Len() int {
	return len(q.ch)
}

// TryEnqueue enqueues without blocking. A full queue drops the event and
// returns false; analytics loss is preferable to stalling navigation.
func (q *InMemoryQueue) TryEnqueue(e api.OutboundEvent) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}
