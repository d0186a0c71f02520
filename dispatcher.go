package stepgate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/stepgate/stepgate/internal/events"
)

// EventSink consumes one outbound analytics event. A returned error is
// logged and the event is dropped; sinks are expected to do their own
// buffering or retrying if they need delivery guarantees.
type EventSink func(ctx context.Context, e OutboundEvent) error

// EventQueue buffers outbound events between the wizard and the Dispatcher.
type EventQueue = events.InMemoryQueue

// NewEventQueue creates an event queue with the given capacity. For most
// deployments a modest capacity (e.g. 1024) is fine; capacity <= 0 selects
// the default.
func NewEventQueue(capacity int) *EventQueue {
	return events.NewInMemoryQueue(capacity)
}

// Dispatcher drains an EventQueue into an EventSink using one or more
// goroutines.
//
// Typical usage:
//
//	queue := stepgate.NewEventQueue(1024)
//	d := stepgate.NewDispatcher(queue, sendToAnalytics)
//	_ = d.Start(ctx, 2)
//	...
//	d.Stop()
type Dispatcher struct {
	queue *EventQueue
	sink  EventSink

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewDispatcher constructs a Dispatcher for the given queue and sink.
func NewDispatcher(queue *EventQueue, sink EventSink) *Dispatcher {
	return &Dispatcher{queue: queue, sink: sink}
}

// Start launches 'concurrency' goroutines that continuously dequeue events
// until the context is cancelled via Stop.
//
// If Start is called more than once without Stop, it returns an error.
func (d *Dispatcher) Start(ctx context.Context, concurrency int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return errors.New("stepgate: dispatcher already started")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer d.wg.Done()

			for {
				e, err := d.queue.Dequeue(ctx)
				if err != nil {
					// Cancellation is the clean shutdown signal.
					return
				}
				if err := d.sink(ctx, *e); err != nil {
					// A failing sink must not kill the dispatch loop;
					// log and move on.
					slog.Warn("event dispatch failed",
						"kind", string(e.Kind),
						"session_id", e.SessionID,
						"error", err)
				}
			}
		}()
	}
	return nil
}

// Stop cancels the dispatch goroutines and waits for them to exit. Events
// still queued are kept and will be drained if Start is called again.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// Pending returns the number of events waiting in the queue.
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}
