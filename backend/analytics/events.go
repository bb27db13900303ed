package analytics

import (
	"time"

	"github.com/posthog/posthog-go"
)

// All captures share one pseudonymous distinct id; nothing ties the
// telemetry to a person. Enqueue errors are dropped, capture never
// interferes with the engine.
func capture(client Client, event string, props map[string]any) {
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      event,
		Properties: props,
	})
}

func EmitTaskCreated(client Client, taskID string, sessionID string, domain string) {
	capture(client, "task_created", map[string]any{
		"task_id":    taskID,
		"session_id": sessionID,
		"domain":     domain,
	})
}

func EmitTaskCompleted(client Client, taskID string, domain string, openFor time.Duration) {
	capture(client, "task_completed", map[string]any{
		"task_id":      taskID,
		"domain":       domain,
		"open_seconds": int(openFor / time.Second),
	})
}

func EmitTaskAbandoned(client Client, taskID string, domain string, reason string, openFor time.Duration, contextSwitches int) {
	capture(client, "task_abandoned", map[string]any{
		"task_id":          taskID,
		"domain":           domain,
		"close_reason":     reason,
		"open_seconds":     int(openFor / time.Second),
		"context_switches": contextSwitches,
	})
}

func EmitTaskDeferred(client Client, taskID string, domain string, openFor time.Duration) {
	capture(client, "task_deferred", map[string]any{
		"task_id":      taskID,
		"domain":       domain,
		"open_seconds": int(openFor / time.Second),
	})
}

func EmitInterventionSent(client Client, taskID string, domain string, tier string, elapsed time.Duration) {
	capture(client, "intervention_sent", map[string]any{
		"task_id":         taskID,
		"domain":          domain,
		"tier":            tier,
		"elapsed_seconds": int(elapsed / time.Second),
	})
}

func EmitSessionClosed(client Client, sessionID string, closed int, forced int, completed int, abandoned int, deferred int) {
	capture(client, "session_closed", map[string]any{
		"session_id": sessionID,
		"closed":     closed,
		"forced":     forced,
		"completed":  completed,
		"abandoned":  abandoned,
		"deferred":   deferred,
	})
}
