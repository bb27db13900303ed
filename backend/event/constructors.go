package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/task"
)

// Event type constants
const (
	// Task events
	EventTypeTaskCreated      = "task.created"
	EventTypeTaskRefined      = "task.refined"
	EventTypeTaskTransitioned = "task.transitioned"

	// Intervention events
	EventTypeInterventionRaised = "intervention.raised"

	// Session events
	EventTypeSessionStarted = "session.started"
	EventTypeSessionClosed  = "session.closed"
)

// Event action constants
const (
	ActionCreated      = "created"
	ActionRefined      = "refined"
	ActionTransitioned = "transitioned"
	ActionRaised       = "raised"
	ActionStarted      = "started"
	ActionClosed       = "closed"
)

// TaskEventPayload contains the payload for task events.
type TaskEventPayload struct {
	Task          *task.Record
	PreviousState string // Only set for task.transitioned events
	Trigger       string // Only set for task.transitioned events
}

// TaskRefinedPayload contains the payload for task.refined events.
type TaskRefinedPayload struct {
	Task                *task.Record
	PreviousDescription string
}

// InterventionPayload contains the payload for intervention.raised events.
type InterventionPayload struct {
	TaskID  uuid.UUID
	Tier    string
	Message string
	Elapsed time.Duration
}

// SessionPayload contains the payload for session.started events.
type SessionPayload struct {
	SessionID uuid.UUID
}

// SessionClosedPayload contains the payload for session.closed events.
type SessionClosedPayload struct {
	SessionID uuid.UUID
	Closures  []TaskClosure
}

// --- Task Event Constructors ---

// NewTaskCreatedEvent creates a new task.created event.
func NewTaskCreatedEvent(record *task.Record, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeTaskCreated,
		Action:    ActionCreated,
		Timestamp: at,
		TaskID:    &record.ID,
		SessionID: &record.SessionID,
		Payload: &TaskEventPayload{
			Task: record,
		},
	}
}

// NewTaskRefinedEvent creates a new task.refined event.
func NewTaskRefinedEvent(record *task.Record, previousDescription string, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeTaskRefined,
		Action:    ActionRefined,
		Timestamp: at,
		TaskID:    &record.ID,
		SessionID: &record.SessionID,
		Payload: &TaskRefinedPayload{
			Task:                record,
			PreviousDescription: previousDescription,
		},
	}
}

// NewTaskTransitionedEvent creates a new task.transitioned event.
func NewTaskTransitionedEvent(record *task.Record, previousState task.State, trigger task.Event, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeTaskTransitioned,
		Action:    ActionTransitioned,
		Timestamp: at,
		TaskID:    &record.ID,
		SessionID: &record.SessionID,
		Payload: &TaskEventPayload{
			Task:          record,
			PreviousState: string(previousState),
			Trigger:       string(trigger),
		},
	}
}

// --- Intervention Event Constructors ---

// NewInterventionRaisedEvent creates a new intervention.raised event.
func NewInterventionRaisedEvent(record *task.Record, tier task.Tier, message string, elapsed time.Duration, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeInterventionRaised,
		Action:    ActionRaised,
		Timestamp: at,
		TaskID:    &record.ID,
		SessionID: &record.SessionID,
		Payload: &InterventionPayload{
			TaskID:  record.ID,
			Tier:    string(tier),
			Message: message,
			Elapsed: elapsed,
		},
	}
}

// --- Session Event Constructors ---

// NewSessionStartedEvent creates a new session.started event.
func NewSessionStartedEvent(sessionID uuid.UUID, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeSessionStarted,
		Action:    ActionStarted,
		Timestamp: at,
		SessionID: &sessionID,
		Payload: &SessionPayload{
			SessionID: sessionID,
		},
	}
}

// NewSessionClosedEvent creates a new session.closed event.
func NewSessionClosedEvent(sessionID uuid.UUID, closures []TaskClosure, at time.Time) *StreamEvent {
	return &StreamEvent{
		Type:      EventTypeSessionClosed,
		Action:    ActionClosed,
		Timestamp: at,
		SessionID: &sessionID,
		Payload: &SessionClosedPayload{
			SessionID: sessionID,
			Closures:  closures,
		},
	}
}
