package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/shared"
)

// Sweep runs one escalation pass over every record waiting in
// SOLUTION_PROVIDED or IN_PROGRESS. Each eligible record gets at most one
// intervention per pass, never a tier it already received in this episode.
// Returns the interventions raised.
func (t *Tracker) Sweep(ctx context.Context) ([]*task.Intervention, error) {
	records, err := t.store.ListTasks(ctx, store.TaskFilter{
		States: []task.State{task.StateSolutionProvided, task.StateInProgress},
	})
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceStore, err, "list stalled records")
	}

	// Group by session so each session's pass runs under its write lock and
	// cannot interleave with a closure audit.
	bySession := make(map[uuid.UUID][]*task.Record)
	var order []uuid.UUID
	for _, record := range records {
		if _, ok := bySession[record.SessionID]; !ok {
			order = append(order, record.SessionID)
		}
		bySession[record.SessionID] = append(bySession[record.SessionID], record)
	}

	var raised []*task.Intervention
	for _, sessionID := range order {
		interventions, err := t.sweepSession(ctx, sessionID, bySession[sessionID])
		if err != nil {
			return raised, err
		}
		raised = append(raised, interventions...)
	}
	return raised, nil
}

func (t *Tracker) sweepSession(ctx context.Context, sessionID uuid.UUID, candidates []*task.Record) ([]*task.Intervention, error) {
	lock := t.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	now := t.clock.Now()

	var raised []*task.Intervention
	for _, candidate := range candidates {
		// Re-read under the lock; the candidate may have moved since listing.
		record, err := t.store.GetTask(ctx, candidate.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return raised, shared.Wrap(shared.ErrorSourceStore, err, "reload record %s", candidate.ID)
		}

		evaluation := t.policy.Evaluate(record, now, record.ContextSwitchCount)
		if evaluation == nil {
			continue
		}

		record.InterventionsSent = append(record.InterventionsSent, evaluation.Tier)
		iv := &task.Intervention{
			TaskID:  record.ID,
			Tier:    evaluation.Tier,
			Message: evaluation.Message,
			At:      now,
		}
		if err := t.store.RecordIntervention(ctx, record, iv); err != nil {
			return raised, shared.Wrap(shared.ErrorSourceStore, err, "record intervention")
		}
		t.cache.Delete(record.ID)
		raised = append(raised, iv)

		if t.bus != nil {
			event.Publish(t.bus, event.InterventionRaisedEvent{
				Record:  record.Clone(),
				Tier:    evaluation.Tier,
				Message: evaluation.Message,
				Elapsed: evaluation.Elapsed,
				At:      now,
			})
		}
	}
	return raised, nil
}

// RunSweeper sweeps on a ticker until the context is cancelled. The serve
// daemon runs this next to the HTTP listener.
func (t *Tracker) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := t.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if _, err := t.Sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "escalation sweep failed", "error", err)
			}
		}
	}
}
