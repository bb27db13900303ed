package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/task"
)

// TaskCreatedEvent is published when a new task record enters the system.
// Record is a clone; subscribers may inspect it without synchronization.
type TaskCreatedEvent struct {
	Record *task.Record
	At     time.Time
}

func (e TaskCreatedEvent) Event() {}

// TaskRefinedEvent is published when the description of a task is refined
// before any work has been acknowledged on it.
type TaskRefinedEvent struct {
	Record   *task.Record
	Previous string
	At       time.Time
}

func (e TaskRefinedEvent) Event() {}

// TaskTransitionedEvent is published for every lifecycle transition.
// Trigger is the lifecycle event that caused the transition.
type TaskTransitionedEvent struct {
	Record    *task.Record
	FromState task.State
	Trigger   task.Event
	At        time.Time
}

func (e TaskTransitionedEvent) Event() {}

// InterventionRaisedEvent is published when the escalation sweep decides a
// stalled task needs a nudge. Elapsed is the stall duration at evaluation
// time.
type InterventionRaisedEvent struct {
	Record  *task.Record
	Tier    task.Tier
	Message string
	Elapsed time.Duration
	At      time.Time
}

func (e InterventionRaisedEvent) Event() {}

// SessionStartedEvent is published the first time a session is observed.
type SessionStartedEvent struct {
	SessionID uuid.UUID
	At        time.Time
}

func (e SessionStartedEvent) Event() {}

// TaskClosure describes the final disposition of one task during a session
// closure audit. Forced means the audit closed the task because the user
// never resolved it.
type TaskClosure struct {
	TaskID uuid.UUID
	Domain task.Domain
	State  task.State
	Reason task.CloseReason
	Forced bool
}

// SessionClosedEvent is published after the closure audit has forced a
// disposition on every open task in the session.
type SessionClosedEvent struct {
	SessionID uuid.UUID
	Closures  []TaskClosure
	At        time.Time
}

func (e SessionClosedEvent) Event() {}
