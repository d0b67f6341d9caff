// Package events fans domain events out to registered handlers. Event
// production is synchronous inside the aggregate; consumption happens here on
// a bounded worker queue, so a slow or failing handler can never block or
// fail the mutation that produced the event.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"identity-plane/internal/identity/domain"
)

// Handler reacts to a single event. Handlers bound their own external calls;
// the dispatcher only guards against panics.
type Handler interface {
	Handle(ctx context.Context, evt domain.Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt domain.Event)

func (f HandlerFunc) Handle(ctx context.Context, evt domain.Event) { f(ctx, evt) }

// Dispatcher is a type-keyed handler registry with an asynchronous bounded
// queue. Publish never blocks: when the queue is full the event is dropped
// and logged, not delivered late at the cost of the caller.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventType][]Handler
	all      []Handler

	queue chan domain.Event
	wg    sync.WaitGroup

	// pubMu serializes Publish against Close so the queue is never written
	// after it is closed.
	pubMu  sync.RWMutex
	closed bool

	log *zap.Logger
}

// NewDispatcher starts workers goroutines consuming a queue of queueSize.
// Close must be called on shutdown to drain in-flight events.
func NewDispatcher(log *zap.Logger, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		handlers: make(map[domain.EventType][]Handler),
		queue:    make(chan domain.Event, queueSize),
		log:      log,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Subscribe registers h for the given event types. With no types, h receives
// every event.
func (d *Dispatcher) Subscribe(h Handler, types ...domain.EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(types) == 0 {
		d.all = append(d.all, h)
		return
	}
	for _, t := range types {
		d.handlers[t] = append(d.handlers[t], h)
	}
}

// Publish enqueues events for asynchronous delivery. It returns immediately;
// events that do not fit the queue are dropped with a warning. Publishing
// after Close is a silent no-op.
func (d *Dispatcher) Publish(evts ...domain.Event) {
	d.pubMu.RLock()
	defer d.pubMu.RUnlock()
	if d.closed {
		return
	}
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		select {
		case d.queue <- evt:
		default:
			d.log.Warn("event queue full, dropping event",
				zap.String("event_type", string(evt.Type())),
				zap.String("aggregate_id", evt.AggregateID()))
		}
	}
}

// Close stops intake, waits for queued events to be handled, and returns.
// Safe to call more than once.
func (d *Dispatcher) Close() {
	d.pubMu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.pubMu.Unlock()
	if !alreadyClosed {
		close(d.queue)
	}
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for evt := range d.queue {
		d.deliver(evt)
	}
}

func (d *Dispatcher) deliver(evt domain.Event) {
	d.mu.RLock()
	hs := make([]Handler, 0, len(d.all)+len(d.handlers[evt.Type()]))
	hs = append(hs, d.handlers[evt.Type()]...)
	hs = append(hs, d.all...)
	d.mu.RUnlock()

	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("event handler panicked",
						zap.String("event_type", string(evt.Type())),
						zap.Any("panic", r))
				}
			}()
			h.Handle(context.Background(), evt)
		}()
	}
}
