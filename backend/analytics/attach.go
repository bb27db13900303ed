package analytics

import (
	"context"
	"time"

	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/task"
)

// Attach subscribes the emitters to the bus and returns a detach function.
// Capture runs on bus workers, so a slow sink never blocks engine
// operations.
func Attach(bus *event.Bus, client Client) func() {
	created := event.Subscribe(bus, func(ctx context.Context, e event.TaskCreatedEvent) {
		EmitTaskCreated(client, e.Record.ID.String(), e.Record.SessionID.String(), string(e.Record.Domain))
	}, nil)

	transitioned := event.Subscribe(bus, func(ctx context.Context, e event.TaskTransitionedEvent) {
		record := e.Record
		var openFor time.Duration
		if record.ClosedAt != nil {
			openFor = record.ClosedAt.Sub(record.CreatedAt)
		}

		switch record.State {
		case task.StateCompleted:
			EmitTaskCompleted(client, record.ID.String(), string(record.Domain), openFor)
		case task.StateAbandoned:
			EmitTaskAbandoned(client, record.ID.String(), string(record.Domain),
				string(record.CloseReason), openFor, record.ContextSwitchCount)
		case task.StateDeferred:
			EmitTaskDeferred(client, record.ID.String(), string(record.Domain), openFor)
		}
	}, nil)

	raised := event.Subscribe(bus, func(ctx context.Context, e event.InterventionRaisedEvent) {
		EmitInterventionSent(client, e.Record.ID.String(), string(e.Record.Domain), string(e.Tier), e.Elapsed)
	}, nil)

	closed := event.Subscribe(bus, func(ctx context.Context, e event.SessionClosedEvent) {
		var forced, completed, abandoned, deferred int
		for _, c := range e.Closures {
			if c.Forced {
				forced++
			}
			switch c.State {
			case task.StateCompleted:
				completed++
			case task.StateAbandoned:
				abandoned++
			case task.StateDeferred:
				deferred++
			}
		}
		EmitSessionClosed(client, e.SessionID.String(), len(e.Closures), forced, completed, abandoned, deferred)
	}, nil)

	return func() {
		created.Unsubscribe()
		transitioned.Unsubscribe()
		raised.Unsubscribe()
		closed.Unsubscribe()
	}
}
