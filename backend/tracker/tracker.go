// Package tracker is the engine's orchestration layer. It wires the clock,
// store, state machine, escalation policy, and event bus behind the inbound
// call surface and owns the per-session write ordering.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter"

	"github.com/tractionhq/traction/backend/escalation"
	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/shared"
)

// ErrSessionClosed is returned for task calls targeting a closed session.
// Once the closure audit has started, the session's record set is final.
var ErrSessionClosed = errors.New("session is closed")

const DefaultCacheSize = 1024

// recordCacheTTL bounds how long a read can serve a cached record. Writes
// invalidate eagerly; the TTL only caps staleness from read/write races.
const recordCacheTTL = time.Minute

type Options struct {
	Clock              Clock
	Bus                *event.Bus
	Policy             *escalation.Policy
	DefaultDisposition task.Event
	CacheSize          int
}

func DefaultOptions() *Options {
	return &Options{
		Clock:              NewClock(),
		Policy:             escalation.DefaultPolicy(),
		DefaultDisposition: task.EventAbandoned,
		CacheSize:          DefaultCacheSize,
	}
}

type Option func(*Options)

// WithClock replaces the wall clock, typically with a manual clock in tests.
func WithClock(clock Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithBus attaches an event bus. Without one the tracker publishes nothing.
func WithBus(bus *event.Bus) Option {
	return func(o *Options) {
		o.Bus = bus
	}
}

// WithEscalation replaces the default escalation thresholds.
func WithEscalation(policy *escalation.Policy) Option {
	return func(o *Options) {
		o.Policy = policy
	}
}

// WithDefaultDisposition selects how the closure audit force-closes records
// the caller left unresolved. Only abandoned and deferred are meaningful.
func WithDefaultDisposition(ev task.Event) Option {
	return func(o *Options) {
		o.DefaultDisposition = ev
	}
}

func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.CacheSize = size
	}
}

// Tracker is the inbound surface of the engine. All write operations for a
// session are serialized on a per-session lock, so a closure audit can never
// interleave with a racing task event.
type Tracker struct {
	store              store.Store
	clock              Clock
	bus                *event.Bus
	policy             *escalation.Policy
	defaultDisposition task.Event

	cache *otter.Cache[uuid.UUID, *task.Record]

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func New(st store.Store, opts ...Option) (*Tracker, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	switch options.DefaultDisposition {
	case task.EventAbandoned, task.EventDeferred:
	default:
		return nil, shared.Errorf(shared.ErrorSourceUser,
			"default disposition must be %q or %q, got %q",
			task.EventAbandoned, task.EventDeferred, options.DefaultDisposition)
	}

	cache, err := otter.MustBuilder[uuid.UUID, *task.Record](options.CacheSize).
		WithTTL(recordCacheTTL).
		Build()
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceTracker, err, "build record cache")
	}

	return &Tracker{
		store:              st,
		clock:              options.Clock,
		bus:                options.Bus,
		policy:             options.Policy,
		defaultDisposition: options.DefaultDisposition,
		cache:              &cache,
		locks:              make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

func (t *Tracker) Clock() Clock {
	return t.clock
}

func (t *Tracker) Store() store.Store {
	return t.store
}

func (t *Tracker) Bus() *event.Bus {
	return t.bus
}

// sessionLock returns the write lock for a session, creating it on first use.
func (t *Tracker) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[sessionID] = lock
	}
	return lock
}

// CreateOptions carries the optional fields of CreateTask.
type CreateOptions struct {
	// Supersedes points at a closed record this task replaces.
	Supersedes *uuid.UUID
}

// CreateTask registers a new task in the session. The session is created on
// first contact; a closed session rejects the call with ErrSessionClosed.
func (t *Tracker) CreateTask(ctx context.Context, sessionID uuid.UUID, domain task.Domain, description string, opts CreateOptions) (*task.Record, error) {
	if _, err := task.ParseDomain(string(domain)); err != nil {
		return nil, shared.Wrap(shared.ErrorSourceUser, err, "invalid task domain")
	}

	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := t.clock.Now()

	session, started, err := t.ensureSession(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}
	if session.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}

	if opts.Supersedes != nil {
		prev, err := t.store.GetTask(ctx, *opts.Supersedes)
		if err != nil {
			return nil, err
		}
		if !prev.Terminal() {
			return nil, shared.Errorf(shared.ErrorSourceUser,
				"record %s is still open and cannot be superseded", prev.ID)
		}
	}

	record := &task.Record{
		ID:               uuid.New(),
		SessionID:        sessionID,
		Domain:           domain,
		Description:      description,
		State:            task.StateInitiated,
		CreatedAt:        now,
		LastTransitionAt: now,
		Supersedes:       opts.Supersedes,
	}

	if err := t.store.CreateTask(ctx, record); err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "create task")
	}

	if err := t.recordFocus(ctx, session, record.ID); err != nil {
		return nil, err
	}

	if t.bus != nil {
		if started {
			event.Publish(t.bus, event.SessionStartedEvent{SessionID: sessionID, At: now})
		}
		event.Publish(t.bus, event.TaskCreatedEvent{Record: record.Clone(), At: now})
	}

	return record, nil
}

// RefineDescription rewrites the description of an INITIATED record.
func (t *Tracker) RefineDescription(ctx context.Context, sessionID, taskID uuid.UUID, description string) (*task.Record, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, record, err := t.loadForWrite(ctx, sessionID, taskID)
	if err != nil {
		return nil, err
	}

	previous := record.Description
	if err := task.Refine(record, description); err != nil {
		return nil, err
	}

	if err := t.store.UpdateTask(ctx, record); err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "persist refinement")
	}
	t.cache.Delete(record.ID)

	if err := t.recordFocus(ctx, session, record.ID); err != nil {
		return nil, err
	}

	if t.bus != nil {
		event.Publish(t.bus, event.TaskRefinedEvent{
			Record:   record.Clone(),
			Previous: previous,
			At:       t.clock.Now(),
		})
	}

	return record, nil
}

// ApplyEvent advances a record through the lifecycle table. On success the
// transition is persisted together with its audit row, context-switch
// bookkeeping runs, and task.transitioned is published. On failure nothing
// changes.
func (t *Tracker) ApplyEvent(ctx context.Context, sessionID, taskID uuid.UUID, ev task.Event) (*task.Record, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, record, err := t.loadForWrite(ctx, sessionID, taskID)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	fromState := record.State

	if err := task.Apply(record, ev, now); err != nil {
		return nil, err
	}

	tr := &task.Transition{
		TaskID:    record.ID,
		FromState: fromState,
		ToState:   record.State,
		Event:     ev,
		Reason:    string(record.CloseReason),
		At:        now,
	}
	if err := t.store.ApplyTransition(ctx, record, tr); err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "persist transition")
	}
	t.cache.Delete(record.ID)

	if err := t.recordFocus(ctx, session, record.ID); err != nil {
		return nil, err
	}

	if t.bus != nil {
		event.Publish(t.bus, event.TaskTransitionedEvent{
			Record:    record.Clone(),
			FromState: fromState,
			Trigger:   ev,
			At:        now,
		})
	}

	return record, nil
}

// GetTask reads one record, served from the hot-record cache when possible.
func (t *Tracker) GetTask(ctx context.Context, sessionID, taskID uuid.UUID) (*task.Record, error) {
	if record, ok := t.cache.Get(taskID); ok {
		if record.SessionID != sessionID {
			return nil, fmt.Errorf("%w: task %s in session %s", store.ErrNotFound, taskID, sessionID)
		}
		return record.Clone(), nil
	}

	record, err := t.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if record.SessionID != sessionID {
		return nil, fmt.Errorf("%w: task %s in session %s", store.ErrNotFound, taskID, sessionID)
	}

	t.cache.Set(taskID, record.Clone())
	return record, nil
}

// ListTasks reads records matching the filter, ordered by creation time.
func (t *Tracker) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*task.Record, error) {
	return t.store.ListTasks(ctx, filter)
}

// GetSession reads session metadata.
func (t *Tracker) GetSession(ctx context.Context, sessionID uuid.UUID) (*task.Session, error) {
	return t.store.GetSession(ctx, sessionID)
}

// ensureSession loads the session, creating it on first contact. The second
// return value reports whether this call started the session.
func (t *Tracker) ensureSession(ctx context.Context, sessionID uuid.UUID, now time.Time) (*task.Session, bool, error) {
	session, err := t.store.GetSession(ctx, sessionID)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, shared.Wrap(shared.ErrorSourceStore, err, "load session")
	}

	session = &task.Session{ID: sessionID, StartedAt: now}
	if err := t.store.UpsertSession(ctx, session); err != nil {
		return nil, false, shared.Wrap(shared.ErrorSourceStore, err, "start session")
	}
	return session, true, nil
}

// loadForWrite is the common gate for task-targeted writes: the session must
// exist and be open, and the record must belong to it.
func (t *Tracker) loadForWrite(ctx context.Context, sessionID, taskID uuid.UUID) (*task.Session, *task.Record, error) {
	session, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Closed() {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}

	record, err := t.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if record.SessionID != sessionID {
		return nil, nil, fmt.Errorf("%w: task %s in session %s", store.ErrNotFound, taskID, sessionID)
	}

	return session, record, nil
}

// recordFocus runs context-switch bookkeeping for a successful mutating call
// that targeted taskID. When focus moved to a different task, every other
// non-terminal record in the session is bumped; consecutive calls on the
// same task count once. Reads and sweeps never pass through here.
func (t *Tracker) recordFocus(ctx context.Context, session *task.Session, taskID uuid.UUID) error {
	if session.LastTaskID != nil && *session.LastTaskID == taskID {
		return nil
	}

	if session.LastTaskID != nil {
		records, err := t.store.ListTasks(ctx, store.TaskFilter{SessionID: &session.ID})
		if err != nil {
			return shared.Wrap(shared.ErrorSourceStore, err, "list session records")
		}
		for _, record := range records {
			if record.ID == taskID || record.Terminal() {
				continue
			}
			record.ContextSwitchCount++
			if err := t.store.UpdateTask(ctx, record); err != nil {
				return shared.Wrap(shared.ErrorSourceStore, err, "bump context switch count")
			}
			t.cache.Delete(record.ID)
		}
	}

	lastTaskID := taskID
	session.LastTaskID = &lastTaskID
	if err := t.store.UpsertSession(ctx, session); err != nil {
		return shared.Wrap(shared.ErrorSourceStore, err, "move session focus")
	}
	return nil
}
