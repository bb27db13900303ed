// Package store persists task records, sessions, and their append-only
// transition and intervention logs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/task"
)

// ErrNotFound is returned when a record, session, or log row does not exist.
var ErrNotFound = errors.New("not found")

// TimeRange is a half-open interval [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// TaskFilter narrows ListTasks. Nil fields match everything. Results are
// always ordered by createdAt ascending, id ascending as tie-break.
type TaskFilter struct {
	SessionID     *uuid.UUID
	Domain        *task.Domain
	States        []task.State
	CreatedWithin *TimeRange
	ClosedWithin  *TimeRange
}

func (f TaskFilter) matches(r *task.Record) bool {
	if f.SessionID != nil && r.SessionID != *f.SessionID {
		return false
	}
	if f.Domain != nil && r.Domain != *f.Domain {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if r.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedWithin != nil && !f.CreatedWithin.Contains(r.CreatedAt) {
		return false
	}
	if f.ClosedWithin != nil {
		if r.ClosedAt == nil || !f.ClosedWithin.Contains(*r.ClosedAt) {
			return false
		}
	}
	return true
}

// InterventionFilter narrows ListInterventions.
type InterventionFilter struct {
	TaskID       *uuid.UUID
	RaisedWithin *TimeRange
}

// Store is the persistence boundary of the engine. Updates are atomic per
// record: concurrent readers observe the old or the new row, never a torn
// one.
type Store interface {
	CreateTask(ctx context.Context, record *task.Record) error
	GetTask(ctx context.Context, id uuid.UUID) (*task.Record, error)
	// UpdateTask persists a mutated record. The record must exist.
	UpdateTask(ctx context.Context, record *task.Record) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*task.Record, error)

	// ApplyTransition persists the mutated record together with its audit
	// row in one atomic step.
	ApplyTransition(ctx context.Context, record *task.Record, tr *task.Transition) error
	ListTransitions(ctx context.Context, taskID uuid.UUID) ([]*task.Transition, error)

	// RecordIntervention persists the record's grown intervention ladder and
	// the intervention log row in one atomic step.
	RecordIntervention(ctx context.Context, record *task.Record, iv *task.Intervention) error
	ListInterventions(ctx context.Context, filter InterventionFilter) ([]*task.Intervention, error)

	UpsertSession(ctx context.Context, session *task.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*task.Session, error)

	Close() error
}
