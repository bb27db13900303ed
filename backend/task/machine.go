package task

import (
	"errors"
	"fmt"
	"time"
)

// Event is a lifecycle event applied to a task record.
type Event string

const (
	EventSolutionGiven Event = "solutionGiven"
	EventWorkStarted   Event = "workStarted"
	EventCompleted     Event = "completed"
	EventAbandoned     Event = "abandoned"
	EventDeferred      Event = "deferred"
)

func Events() []Event {
	return []Event{EventSolutionGiven, EventWorkStarted, EventCompleted, EventAbandoned, EventDeferred}
}

func ParseEvent(s string) (Event, error) {
	for _, ev := range Events() {
		if s == string(ev) {
			return ev, nil
		}
	}
	return "", fmt.Errorf("unknown event %q", s)
}

var (
	// ErrInvalidTransition means the event is not legal for the record's
	// current state. The record is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrImmutableRecord means the record is terminal and rejects mutation.
	ErrImmutableRecord = errors.New("record is terminal and immutable")
)

// transitions is the total table. Any (state, event) pair absent here is
// invalid; in particular INITIATED can never jump straight to COMPLETED.
var transitions = map[State]map[Event]State{
	StateInitiated: {
		EventSolutionGiven: StateSolutionProvided,
		EventDeferred:      StateDeferred,
	},
	StateSolutionProvided: {
		EventWorkStarted: StateInProgress,
		EventCompleted:   StateCompleted,
		EventAbandoned:   StateAbandoned,
		EventDeferred:    StateDeferred,
	},
	StateInProgress: {
		EventCompleted: StateCompleted,
		EventAbandoned: StateAbandoned,
		EventDeferred:  StateDeferred,
	},
}

// Next resolves the target state for an event, or fails without side effects.
func Next(from State, ev Event) (State, error) {
	if from.Terminal() {
		return "", fmt.Errorf("%w: %s records reject %q", ErrImmutableRecord, from, ev)
	}

	to, ok := transitions[from][ev]
	if !ok {
		return "", fmt.Errorf("%w: %q is not valid in state %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// closeReasonFor maps a terminal event to its canonical close reason.
func closeReasonFor(ev Event) CloseReason {
	switch ev {
	case EventCompleted:
		return CloseReasonCompleted
	case EventAbandoned:
		return CloseReasonUserAbandoned
	case EventDeferred:
		return CloseReasonUserDeferred
	}
	return ""
}

// Apply advances the record. On success it moves the state, stamps
// lastTransitionAt, clears the intervention ladder, and on terminal entry
// sets closedAt and the canonical close reason. On failure the record is
// unchanged.
func Apply(r *Record, ev Event, now time.Time) error {
	return ApplyWithReason(r, ev, now, "")
}

// ApplyWithReason is Apply with an explicit close reason, used by the session
// closure audit to mark forced dispositions. An empty reason falls back to
// the event's canonical one.
func ApplyWithReason(r *Record, ev Event, now time.Time, reason CloseReason) error {
	to, err := Next(r.State, ev)
	if err != nil {
		return err
	}

	r.State = to
	r.LastTransitionAt = now
	r.InterventionsSent = nil

	if to.Terminal() {
		closedAt := now
		r.ClosedAt = &closedAt
		if reason == "" {
			reason = closeReasonFor(ev)
		}
		r.CloseReason = reason
	}

	return nil
}

// ForceClose drives a non-terminal record straight to a terminal state,
// outside the event table. The session closure audit uses it: an INITIATED
// record has no valid abandon event, yet an unresolved task still counts as
// abandoned when its session ends. Terminal records stay immutable.
func ForceClose(r *Record, to State, reason CloseReason, now time.Time) error {
	if r.Terminal() {
		return fmt.Errorf("%w: %s records reject forced closure", ErrImmutableRecord, r.State)
	}
	if !to.Terminal() {
		return fmt.Errorf("forced closure target %s is not terminal", to)
	}

	r.State = to
	r.LastTransitionAt = now
	r.InterventionsSent = nil
	closedAt := now
	r.ClosedAt = &closedAt
	r.CloseReason = reason

	return nil
}

// Refine updates the description. Only INITIATED records are refinable.
func Refine(r *Record, description string) error {
	if r.Terminal() {
		return fmt.Errorf("%w: cannot refine %s record", ErrImmutableRecord, r.State)
	}
	if r.State != StateInitiated {
		return fmt.Errorf("%w: description is only refinable while %s", ErrInvalidTransition, StateInitiated)
	}

	r.Description = description
	return nil
}
