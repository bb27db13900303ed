package conv

import (
	"fmt"
	"time"

	"github.com/tractionhq/traction/backend/event"
)

// StreamEvent is the wire envelope for the event feed.
type StreamEvent struct {
	Type      string    `json:"type"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	TaskID    *string   `json:"taskId,omitempty"`
	SessionID *string   `json:"sessionId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
}

// TaskEventPayload carries the record for task.created and task.transitioned.
type TaskEventPayload struct {
	Task          *Task  `json:"task"`
	PreviousState string `json:"previousState,omitempty"`
	Trigger       string `json:"trigger,omitempty"`
}

// TaskRefinedPayload carries the description change for task.refined.
type TaskRefinedPayload struct {
	Task                *Task  `json:"task"`
	PreviousDescription string `json:"previousDescription"`
}

// InterventionEventPayload carries the nudge for intervention.raised.
type InterventionEventPayload struct {
	TaskID         string `json:"taskId"`
	Tier           string `json:"tier"`
	Message        string `json:"message"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
}

// SessionEventPayload carries the session id for session.started.
type SessionEventPayload struct {
	SessionID string `json:"sessionId"`
}

// TaskClosure is one forced or explicit disposition in session.closed.
type TaskClosure struct {
	TaskID string `json:"taskId"`
	Domain string `json:"domain"`
	State  string `json:"state"`
	Reason string `json:"reason"`
	Forced bool   `json:"forced"`
}

// SessionClosedPayload carries the audit outcome for session.closed.
type SessionClosedPayload struct {
	SessionID string        `json:"sessionId"`
	Closures  []TaskClosure `json:"closures"`
}

// ConvertStreamEvent maps a router envelope onto its wire shape. An unknown
// payload type is an error; it means a new event type was added without a
// wire conversion.
func ConvertStreamEvent(e *event.StreamEvent) (*StreamEvent, error) {
	out := &StreamEvent{
		Type:      e.Type,
		Action:    e.Action,
		Timestamp: e.Timestamp,
	}
	if e.TaskID != nil {
		taskID := e.TaskID.String()
		out.TaskID = &taskID
	}
	if e.SessionID != nil {
		sessionID := e.SessionID.String()
		out.SessionID = &sessionID
	}

	switch payload := e.Payload.(type) {
	case nil:
	case *event.TaskEventPayload:
		out.Payload = &TaskEventPayload{
			Task:          ConvertRecord(payload.Task),
			PreviousState: payload.PreviousState,
			Trigger:       payload.Trigger,
		}
	case *event.TaskRefinedPayload:
		out.Payload = &TaskRefinedPayload{
			Task:                ConvertRecord(payload.Task),
			PreviousDescription: payload.PreviousDescription,
		}
	case *event.InterventionPayload:
		out.Payload = &InterventionEventPayload{
			TaskID:         payload.TaskID.String(),
			Tier:           payload.Tier,
			Message:        payload.Message,
			ElapsedSeconds: int(payload.Elapsed / time.Second),
		}
	case *event.SessionPayload:
		out.Payload = &SessionEventPayload{
			SessionID: payload.SessionID.String(),
		}
	case *event.SessionClosedPayload:
		closures := make([]TaskClosure, len(payload.Closures))
		for i, closure := range payload.Closures {
			closures[i] = TaskClosure{
				TaskID: closure.TaskID.String(),
				Domain: string(closure.Domain),
				State:  string(closure.State),
				Reason: string(closure.Reason),
				Forced: closure.Forced,
			}
		}
		out.Payload = &SessionClosedPayload{
			SessionID: payload.SessionID.String(),
			Closures:  closures,
		}
	default:
		return nil, fmt.Errorf("no wire conversion for %s payload %T", e.Type, e.Payload)
	}

	return out, nil
}
