package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/shared"
)

// Dispositions maps record ids to the explicit closure event the caller
// chose for them at session end.
type Dispositions map[uuid.UUID]task.Event

// Closure is one audited record in its final state.
type Closure struct {
	Record *task.Record
	// Forced marks records the audit closed with the default disposition
	// because the caller never resolved them.
	Forced bool
}

// ClosureReport is the outcome of a session closure audit.
type ClosureReport struct {
	SessionID uuid.UUID
	ClosedAt  time.Time
	Closures  []Closure
}

// CloseSession runs the closure audit. Explicit dispositions are applied as
// ordinary lifecycle events; every remaining open record is force-closed
// with the configured default disposition. The session stops accepting task
// events the moment the audit begins, and an invalid disposition fails the
// whole audit before any record is touched.
func (t *Tracker) CloseSession(ctx context.Context, sessionID uuid.UUID, dispositions Dispositions) (*ClosureReport, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Closed() {
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, sessionID)
	}

	open, err := t.store.ListTasks(ctx, store.TaskFilter{
		SessionID: &sessionID,
		States:    []task.State{task.StateInitiated, task.StateSolutionProvided, task.StateInProgress},
	})
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "list open records")
	}

	if err := validateDispositions(open, dispositions); err != nil {
		return nil, err
	}

	now := t.clock.Now()

	// Close the session first so the audit is its final word; calls waiting
	// on the session lock observe ErrSessionClosed.
	closedAt := now
	session.ClosedAt = &closedAt
	if err := t.store.UpsertSession(ctx, session); err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "close session")
	}

	report := &ClosureReport{SessionID: sessionID, ClosedAt: now}
	closures := make([]event.TaskClosure, 0, len(open))

	for _, record := range open {
		fromState := record.State
		ev, explicit := dispositions[record.ID]

		if explicit {
			if err := task.Apply(record, ev, now); err != nil {
				return nil, err
			}
		} else {
			ev = t.defaultDisposition
			target := task.StateAbandoned
			reason := task.CloseReasonSessionForcedAbandon
			if ev == task.EventDeferred {
				target = task.StateDeferred
				reason = task.CloseReasonUserDeferred
			}
			if err := task.ForceClose(record, target, reason, now); err != nil {
				return nil, err
			}
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
			return nil, shared.Wrap(shared.ErrorSourceStore, err, "persist closure")
		}
		t.cache.Delete(record.ID)

		report.Closures = append(report.Closures, Closure{Record: record.Clone(), Forced: !explicit})
		closures = append(closures, event.TaskClosure{
			TaskID: record.ID,
			Domain: record.Domain,
			State:  record.State,
			Reason: record.CloseReason,
			Forced: !explicit,
		})
	}

	if t.bus != nil {
		event.Publish(t.bus, event.SessionClosedEvent{SessionID: sessionID, Closures: closures, At: now})
	}

	return report, nil
}

// validateDispositions rejects the audit upfront when a disposition names an
// unknown record or an event its record cannot take.
func validateDispositions(open []*task.Record, dispositions Dispositions) error {
	byID := make(map[uuid.UUID]*task.Record, len(open))
	for _, record := range open {
		byID[record.ID] = record
	}

	for id, ev := range dispositions {
		record, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: no open record %s in this session", store.ErrNotFound, id)
		}
		switch ev {
		case task.EventCompleted, task.EventAbandoned, task.EventDeferred:
		default:
			return shared.Errorf(shared.ErrorSourceUser,
				"disposition for %s must close the record, got %q", id, ev)
		}
		if _, err := task.Next(record.State, ev); err != nil {
			return err
		}
	}
	return nil
}
