package event

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// workerCount is the number of goroutines delivering queued events.
	workerCount = 8

	// queueCapacity bounds the delivery queue. Publishers never block; when
	// the queue is full events are dropped and counted.
	queueCapacity = 256
)

// Event is the marker interface every published event implements.
type Event[T any] interface {
	Event()
}

// Handler receives events of type T. Handlers run on bus workers and
// return nothing; a handler that can fail logs for itself.
type Handler[T any] func(context.Context, T)

// EventFilter drops events the subscriber does not care about before they
// reach the handler or channel.
type EventFilter[T any] func(T) bool

// Bus fans typed events out to subscribers through a fixed worker pool.
// Publishing never blocks the caller.
type Bus struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan delivery

	mu       sync.RWMutex
	bindings map[reflect.Type][]binding

	wg      sync.WaitGroup
	closed  atomic.Bool
	metrics *busMetricsProvider
}

// delivery is one queued subscriber invocation.
type delivery struct {
	event    any
	typeName string
	deliver  func(context.Context, any)
}

// binding is one registered subscriber. ch is non-nil for channel
// subscriptions and closes on unsubscribe.
type binding struct {
	id      uuid.UUID
	deliver func(context.Context, any)
	ch      any
}

func (b binding) closeChannel() {
	if b.ch != nil {
		reflect.ValueOf(b.ch).Close()
	}
}

type Subscription struct {
	bus       *Bus
	eventType reflect.Type
	id        uuid.UUID
	once      sync.Once
}

func NewBus(metricsRegistry *prometheus.Registry) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan delivery, queueCapacity),
		bindings: make(map[reflect.Type][]binding),
		metrics:  newBusMetricsProvider(metricsRegistry),
	}

	bus.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go bus.work()
	}

	return bus
}

func (bus *Bus) work() {
	defer bus.wg.Done()

	for {
		select {
		case <-bus.ctx.Done():
			return
		case item := <-bus.queue:
			bus.deliver(item)
		}
	}
}

// deliver invokes one queued subscriber. A panicking handler loses its
// event, not the worker.
func (bus *Bus) deliver(item delivery) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(bus.ctx, "panic in event handler",
				"error", r,
				"event_type", item.typeName,
				"stack", string(debug.Stack()),
			)
		}
	}()

	item.deliver(bus.ctx, item.event)
	bus.metrics.IncrementDelivered(item.typeName)
}

func typeOf[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

// Subscribe registers handler for events of type T, invoked asynchronously
// on the bus workers. A nil filter accepts everything.
//
//	sub := Subscribe(bus, func(ctx context.Context, e InterventionRaisedEvent) {
//	    notify(e.Message)
//	}, nil)
//	defer sub.Unsubscribe()
func Subscribe[T Event[T]](bus *Bus, handler Handler[T], filter EventFilter[T]) *Subscription {
	if bus.closed.Load() {
		slog.WarnContext(bus.ctx, "attempted to subscribe to closed event bus")
		return &Subscription{bus: bus}
	}

	deliver := func(ctx context.Context, raw any) {
		e, ok := raw.(T)
		if !ok || (filter != nil && !filter(e)) {
			return
		}
		handler(ctx, e)
	}

	return bus.register(typeOf[T](), binding{id: uuid.New(), deliver: deliver})
}

// SubscribeChannel registers a buffered channel for events of type T. A
// full buffer drops further events rather than blocking the workers; the
// channel closes on Unsubscribe.
func SubscribeChannel[T Event[T]](bus *Bus, bufferSize int, filter EventFilter[T]) (<-chan T, *Subscription) {
	if bus.closed.Load() {
		slog.WarnContext(bus.ctx, "attempted to subscribe channel to closed event bus")
		ch := make(chan T)
		close(ch)
		return ch, &Subscription{bus: bus}
	}

	eventType := typeOf[T]()
	typeName := eventType.String()
	ch := make(chan T, bufferSize)
	id := uuid.New()

	deliver := func(ctx context.Context, raw any) {
		e, ok := raw.(T)
		if !ok || (filter != nil && !filter(e)) {
			return
		}
		select {
		case ch <- e:
		default:
			bus.metrics.IncrementDropped(typeName)
			slog.DebugContext(ctx, "dropped event, channel buffer full",
				"event_type", typeName,
				"subscriber_id", id,
			)
		}
	}

	return ch, bus.register(eventType, binding{id: id, deliver: deliver, ch: ch})
}

func (bus *Bus) register(eventType reflect.Type, b binding) *Subscription {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.bindings[eventType] = append(bus.bindings[eventType], b)

	return &Subscription{bus: bus, eventType: eventType, id: b.id}
}

// Unsubscribe removes the subscription and closes its channel if it has
// one. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()

		if s.bus.closed.Load() {
			return
		}

		bindings := s.bus.bindings[s.eventType]
		for i, b := range bindings {
			if b.id != s.id {
				continue
			}
			s.bus.bindings[s.eventType] = slices.Delete(bindings, i, i+1)
			b.closeChannel()
			break
		}
	})
}

// Publish queues event for every subscriber of its type and returns
// immediately. With the queue full the event drops rather than stalling an
// engine call.
func Publish[T Event[T]](bus *Bus, event T) {
	if bus.closed.Load() {
		slog.DebugContext(bus.ctx, "attempted to publish to closed event bus")
		return
	}

	eventType := reflect.TypeOf(event)
	typeName := eventType.String()

	bus.mu.RLock()
	targets := slices.Clone(bus.bindings[eventType])
	bus.mu.RUnlock()

	for _, b := range targets {
		select {
		case bus.queue <- delivery{event: event, typeName: typeName, deliver: b.deliver}:
		case <-bus.ctx.Done():
			return
		default:
			bus.metrics.IncrementDropped(typeName)
			slog.DebugContext(bus.ctx, "dropped event, delivery queue full",
				"event_type", typeName,
			)
		}
	}

	bus.metrics.IncrementPublished(typeName)
}

// Close stops the workers and closes every channel subscription. Queued
// but undelivered events are discarded. Safe to call more than once.
func (bus *Bus) Close() {
	if !bus.closed.CompareAndSwap(false, true) {
		return
	}

	bus.cancel()
	bus.wg.Wait()

	bus.mu.Lock()
	defer bus.mu.Unlock()
	for eventType, bindings := range bus.bindings {
		for _, b := range bindings {
			b.closeChannel()
		}
		delete(bus.bindings, eventType)
	}

	slog.Debug("event bus closed")
}

func (bus *Bus) IsClosed() bool {
	return bus.closed.Load()
}

// SubscriberCount reports the subscribers registered for T, mainly for
// tests.
func SubscriberCount[T Event[T]](bus *Bus) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return len(bus.bindings[typeOf[T]()])
}
