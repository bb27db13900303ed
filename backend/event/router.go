package event

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultChannelBufferSize is the subscriber channel buffer used when the
// caller does not pick one.
const DefaultChannelBufferSize = 100

// StreamEvent is the routed form of a domain event, flattened for
// pattern-matched delivery to API consumers.
type StreamEvent struct {
	// Type names the event, entity dot action ("task.created",
	// "intervention.raised").
	Type string

	// Action is the verb part of Type.
	Action string

	// Timestamp is when the change happened, on the engine clock.
	Timestamp time.Time

	// TaskID scopes task events for filtering. Nil otherwise.
	TaskID *uuid.UUID

	// SessionID scopes session-bound events for filtering. Nil otherwise.
	SessionID *uuid.UUID

	// Payload carries the domain object, *task.Record and friends.
	Payload any
}

// SubscribeOptions filters a stream subscription.
type SubscribeOptions struct {
	// EventTypes are glob patterns: "*", "task.*", "*.created", or exact
	// names. Empty means everything. internal.* events stay hidden unless
	// Internal is set.
	EventTypes []string

	// TaskID limits delivery to events scoped to one task.
	TaskID string

	// SessionID limits delivery to events scoped to one session.
	SessionID string

	// Internal admits internal.* events. Never set for API consumers.
	Internal bool
}

type subscription struct {
	id        uuid.UUID
	patterns  []string
	taskID    *uuid.UUID
	sessionID *uuid.UUID
	ch        chan *StreamEvent
	cancel    context.CancelFunc
}

// wants reports whether the subscription's scope and patterns accept e.
func (s *subscription) wants(e *StreamEvent) bool {
	if !scopeMatches(s.taskID, e.TaskID) || !scopeMatches(s.sessionID, e.SessionID) {
		return false
	}
	return slices.ContainsFunc(s.patterns, func(p string) bool {
		return matchPattern(p, e.Type)
	})
}

func scopeMatches(want, got *uuid.UUID) bool {
	return want == nil || (got != nil && *got == *want)
}

// EventRouter distributes stream events to pattern-matched subscribers.
type EventRouter struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]*subscription
	bufferSize    int
	closed        bool
}

func NewEventRouter(bufferSize int) *EventRouter {
	if bufferSize <= 0 {
		bufferSize = DefaultChannelBufferSize
	}
	return &EventRouter{
		subscriptions: make(map[uuid.UUID]*subscription),
		bufferSize:    bufferSize,
	}
}

// Subscribe returns a channel of matching events and a cancel function
// that unsubscribes and closes it. Cancelling ctx does the same.
func (r *EventRouter) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan *StreamEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan *StreamEvent)
		close(ch)
		return ch, func() {}
	}

	patterns := opts.EventTypes
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	if !opts.Internal {
		patterns = dropInternalPatterns(patterns)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:        uuid.New(),
		patterns:  patterns,
		taskID:    parseScopeID(opts.TaskID),
		sessionID: parseScopeID(opts.SessionID),
		ch:        make(chan *StreamEvent, r.bufferSize),
		cancel:    cancel,
	}
	r.subscriptions[sub.id] = sub

	go func() {
		<-subCtx.Done()
		r.unsubscribe(sub.id)
	}()

	return sub.ch, cancel
}

// parseScopeID reads an optional scope filter. A malformed id means no
// scoping rather than a failed subscription.
func parseScopeID(raw string) *uuid.UUID {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func (r *EventRouter) unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscriptions[id]; ok {
		close(sub.ch)
		delete(r.subscriptions, id)
	}
}

// Publish delivers event to every matching subscriber without blocking. A
// subscriber that cannot keep up loses events.
func (r *EventRouter) Publish(event *StreamEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	for _, sub := range r.subscriptions {
		if !sub.wants(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slog.Debug("dropped stream event, subscriber buffer full",
				"event_type", event.Type,
				"subscription_id", sub.id,
			)
		}
	}
}

const internalEventPrefix = "internal."

func dropInternalPatterns(patterns []string) []string {
	return slices.DeleteFunc(slices.Clone(patterns), func(p string) bool {
		return strings.HasPrefix(p, internalEventPrefix)
	})
}

func isInternalEvent(eventType string) bool {
	return strings.HasPrefix(eventType, internalEventPrefix)
}

// matchPattern reports whether eventType matches the glob pattern. "*"
// matches everything, "task.*" an entity, "*.created" an action, anything
// else matches exactly. internal.* events only ever match explicit
// internal.* patterns, wildcards skip them.
func matchPattern(pattern, eventType string) bool {
	if isInternalEvent(eventType) && !strings.HasPrefix(pattern, internalEventPrefix) {
		return false
	}

	if pattern == "*" || pattern == eventType {
		return true
	}

	patternEntity, patternAction, ok := strings.Cut(pattern, ".")
	if !ok {
		return false
	}
	eventEntity, eventAction, ok := strings.Cut(eventType, ".")
	if !ok {
		return false
	}

	if patternAction == "*" && patternEntity == eventEntity {
		return true
	}
	if patternEntity == "*" && patternAction == eventAction {
		return true
	}
	return false
}

// Close drops every subscription and closes its channel.
func (r *EventRouter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for id, sub := range r.subscriptions {
		sub.cancel()
		close(sub.ch)
		delete(r.subscriptions, id)
	}
}

// SubscriptionCount reports active subscriptions, mainly for tests.
func (r *EventRouter) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscriptions)
}
