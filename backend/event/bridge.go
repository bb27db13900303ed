package event

import (
	"context"
)

// RegisterBridge wires the typed bus onto the stream router so external
// consumers (SSE clients, watch commands) observe the same events that
// internal subscribers do.
//
// Events forwarded:
//   - task.created, task.refined, task.transitioned
//   - intervention.raised
//   - session.started, session.closed
//
// The returned function detaches the bridge.
func RegisterBridge(bus *Bus, router *EventRouter) func() {
	subs := []*Subscription{
		Subscribe(bus, func(ctx context.Context, e TaskCreatedEvent) {
			router.Publish(NewTaskCreatedEvent(e.Record, e.At))
		}, nil),
		Subscribe(bus, func(ctx context.Context, e TaskRefinedEvent) {
			router.Publish(NewTaskRefinedEvent(e.Record, e.Previous, e.At))
		}, nil),
		Subscribe(bus, func(ctx context.Context, e TaskTransitionedEvent) {
			router.Publish(NewTaskTransitionedEvent(e.Record, e.FromState, e.Trigger, e.At))
		}, nil),
		Subscribe(bus, func(ctx context.Context, e InterventionRaisedEvent) {
			router.Publish(NewInterventionRaisedEvent(e.Record, e.Tier, e.Message, e.Elapsed, e.At))
		}, nil),
		Subscribe(bus, func(ctx context.Context, e SessionStartedEvent) {
			router.Publish(NewSessionStartedEvent(e.SessionID, e.At))
		}, nil),
		Subscribe(bus, func(ctx context.Context, e SessionClosedEvent) {
			router.Publish(NewSessionClosedEvent(e.SessionID, e.Closures, e.At))
		}, nil),
	}

	return func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}
}
