package task

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(state State) *Record {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &Record{
		ID:               uuid.New(),
		SessionID:        uuid.New(),
		Domain:           DomainBusiness,
		Description:      "follow up with supplier",
		State:            state,
		CreatedAt:        created,
		LastTransitionAt: created,
	}
}

func TestNextValidTransitions(t *testing.T) {
	tests := []struct {
		from  State
		event Event
		want  State
	}{
		{StateInitiated, EventSolutionGiven, StateSolutionProvided},
		{StateInitiated, EventDeferred, StateDeferred},
		{StateSolutionProvided, EventWorkStarted, StateInProgress},
		{StateSolutionProvided, EventCompleted, StateCompleted},
		{StateSolutionProvided, EventAbandoned, StateAbandoned},
		{StateSolutionProvided, EventDeferred, StateDeferred},
		{StateInProgress, EventCompleted, StateCompleted},
		{StateInProgress, EventAbandoned, StateAbandoned},
		{StateInProgress, EventDeferred, StateDeferred},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" "+string(tt.event), func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextInvalidTransitions(t *testing.T) {
	tests := []struct {
		from  State
		event Event
	}{
		{StateInitiated, EventWorkStarted},
		{StateInitiated, EventCompleted},
		{StateInitiated, EventAbandoned},
		{StateSolutionProvided, EventSolutionGiven},
		{StateInProgress, EventSolutionGiven},
		{StateInProgress, EventWorkStarted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" "+string(tt.event), func(t *testing.T) {
			_, err := Next(tt.from, tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestNextTerminalStatesAreImmutable(t *testing.T) {
	for _, from := range []State{StateCompleted, StateAbandoned, StateDeferred} {
		for _, ev := range Events() {
			t.Run(string(from)+" "+string(ev), func(t *testing.T) {
				_, err := Next(from, ev)
				assert.ErrorIs(t, err, ErrImmutableRecord)
			})
		}
	}
}

func TestApplyStampsTransition(t *testing.T) {
	r := newRecord(StateSolutionProvided)
	r.InterventionsSent = []Tier{TierGentle, TierPattern}
	now := r.CreatedAt.Add(40 * time.Minute)

	require.NoError(t, Apply(r, EventWorkStarted, now))

	assert.Equal(t, StateInProgress, r.State)
	assert.Equal(t, now, r.LastTransitionAt)
	assert.Empty(t, r.InterventionsSent)
	assert.Nil(t, r.ClosedAt)
	assert.Empty(t, r.CloseReason)
}

func TestApplyTerminalSetsCloseReason(t *testing.T) {
	tests := []struct {
		from   State
		event  Event
		want   State
		reason CloseReason
	}{
		{StateInProgress, EventCompleted, StateCompleted, CloseReasonCompleted},
		{StateSolutionProvided, EventAbandoned, StateAbandoned, CloseReasonUserAbandoned},
		{StateInitiated, EventDeferred, StateDeferred, CloseReasonUserDeferred},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			r := newRecord(tt.from)
			now := r.CreatedAt.Add(45 * time.Minute)

			require.NoError(t, Apply(r, tt.event, now))

			assert.Equal(t, tt.want, r.State)
			assert.Equal(t, tt.reason, r.CloseReason)
			require.NotNil(t, r.ClosedAt)
			assert.Equal(t, now, *r.ClosedAt)
		})
	}
}

func TestApplyInvalidLeavesRecordUnchanged(t *testing.T) {
	r := newRecord(StateInitiated)
	r.InterventionsSent = []Tier{TierGentle}
	before := r.Clone()

	err := Apply(r, EventWorkStarted, r.CreatedAt.Add(time.Minute))

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, cmp.Diff(before, r))
}

func TestApplyTerminalRecordRejectsEverything(t *testing.T) {
	r := newRecord(StateSolutionProvided)
	require.NoError(t, Apply(r, EventCompleted, r.CreatedAt.Add(time.Minute)))
	before := r.Clone()

	for _, ev := range Events() {
		err := Apply(r, ev, r.CreatedAt.Add(2*time.Minute))
		assert.ErrorIs(t, err, ErrImmutableRecord)
	}
	assert.Empty(t, cmp.Diff(before, r))
}

func TestApplyWithReasonForcedAbandon(t *testing.T) {
	r := newRecord(StateInProgress)
	now := r.CreatedAt.Add(2 * time.Hour)

	require.NoError(t, ApplyWithReason(r, EventAbandoned, now, CloseReasonSessionForcedAbandon))

	assert.Equal(t, StateAbandoned, r.State)
	assert.Equal(t, CloseReasonSessionForcedAbandon, r.CloseReason)
}

func TestForceClose(t *testing.T) {
	t.Run("closes an initiated record the table would protect", func(t *testing.T) {
		r := newRecord(StateInitiated)
		r.InterventionsSent = []Tier{TierGentle}
		now := r.CreatedAt.Add(3 * time.Hour)

		require.NoError(t, ForceClose(r, StateAbandoned, CloseReasonSessionForcedAbandon, now))

		assert.Equal(t, StateAbandoned, r.State)
		assert.Equal(t, CloseReasonSessionForcedAbandon, r.CloseReason)
		assert.Equal(t, now, r.LastTransitionAt)
		assert.Empty(t, r.InterventionsSent)
		require.NotNil(t, r.ClosedAt)
		assert.Equal(t, now, *r.ClosedAt)
	})

	t.Run("rejects terminal records", func(t *testing.T) {
		r := newRecord(StateSolutionProvided)
		require.NoError(t, Apply(r, EventCompleted, r.CreatedAt.Add(time.Minute)))
		before := r.Clone()

		err := ForceClose(r, StateAbandoned, CloseReasonSessionForcedAbandon, r.CreatedAt.Add(time.Hour))

		assert.ErrorIs(t, err, ErrImmutableRecord)
		assert.Empty(t, cmp.Diff(before, r))
	})

	t.Run("rejects non-terminal targets", func(t *testing.T) {
		r := newRecord(StateInitiated)
		err := ForceClose(r, StateInProgress, CloseReasonSessionForcedAbandon, r.CreatedAt.Add(time.Hour))
		require.Error(t, err)
		assert.Equal(t, StateInitiated, r.State)
	})
}

func TestRefine(t *testing.T) {
	t.Run("initiated records are refinable", func(t *testing.T) {
		r := newRecord(StateInitiated)
		require.NoError(t, Refine(r, "call supplier about the late shipment"))
		assert.Equal(t, "call supplier about the late shipment", r.Description)
	})

	t.Run("solution provided records are not", func(t *testing.T) {
		r := newRecord(StateSolutionProvided)
		err := Refine(r, "new description")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, "follow up with supplier", r.Description)
	})

	t.Run("terminal records are immutable", func(t *testing.T) {
		r := newRecord(StateInitiated)
		require.NoError(t, Apply(r, EventDeferred, r.CreatedAt.Add(time.Minute)))

		err := Refine(r, "new description")
		assert.ErrorIs(t, err, ErrImmutableRecord)
	})
}
