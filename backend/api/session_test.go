package api_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tractionhq/traction/backend/api"
	"github.com/tractionhq/traction/backend/api/conv"
	storetest "github.com/tractionhq/traction/backend/store/test"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
)

func sessionPath(sessionID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/sessions/%s", sessionID)
}

func TestGetSessionEndpoint(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	_, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	rec := f.request(t, http.MethodGet, sessionPath(storetest.SessionID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	session := decode[conv.Session](t, rec)
	assert.Equal(t, storetest.SessionID.String(), session.ID)
	assert.Equal(t, storetest.BaseTime, session.StartedAt.UTC())
	assert.Nil(t, session.ClosedAt)

	rec = f.request(t, http.MethodGet, sessionPath(uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCloseSessionEndpoint(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	done, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)
	for _, ev := range []task.Event{task.EventSolutionGiven, task.EventWorkStarted} {
		_, err = f.tracker.ApplyEvent(ctx, storetest.SessionID, done.ID, ev)
		require.NoError(t, err)
	}

	parked, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainPersonal, "book the dentist", tracker.CreateOptions{})
	require.NoError(t, err)

	dropped, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainFamily, "call the school", tracker.CreateOptions{})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, sessionPath(storetest.SessionID)+"/close", map[string][]string{
		"complete": {done.ID.String()},
		"defer":    {parked.ID.String()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	closure := decode[conv.ClosureReport](t, rec)
	assert.Equal(t, storetest.SessionID.String(), closure.SessionID)
	require.Len(t, closure.Closures, 3)

	outcomes := map[string]conv.Closure{}
	for _, c := range closure.Closures {
		outcomes[c.Task.ID] = c
	}

	assert.Equal(t, "COMPLETED", outcomes[done.ID.String()].Task.State)
	assert.False(t, outcomes[done.ID.String()].Forced)
	assert.Equal(t, "DEFERRED", outcomes[parked.ID.String()].Task.State)
	assert.False(t, outcomes[parked.ID.String()].Forced)
	assert.Equal(t, "ABANDONED", outcomes[dropped.ID.String()].Task.State)
	assert.Equal(t, "session-forced-abandon", outcomes[dropped.ID.String()].Task.CloseReason)
	assert.True(t, outcomes[dropped.ID.String()].Forced)

	// The audit is the session's final word.
	rec = f.request(t, http.MethodPost, sessionPath(storetest.SessionID)+"/close", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.request(t, http.MethodPost, tasksPath(storetest.SessionID), map[string]string{
		"domain":      "BUSINESS",
		"description": "one more thing",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCloseSessionRejectsConflictingDispositions(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	record, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, sessionPath(storetest.SessionID)+"/close", map[string][]string{
		"complete": {record.ID.String()},
		"abandon":  {record.ID.String()},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The failed audit must not have closed anything.
	reloaded, err := f.tracker.GetTask(ctx, storetest.SessionID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StateInitiated, reloaded.State)
}

func TestCloseSessionRejectsUnknownDisposition(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	_, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, sessionPath(storetest.SessionID)+"/close", map[string][]string{
		"complete": {uuid.NewString()},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	session, err := f.tracker.GetSession(ctx, storetest.SessionID)
	require.NoError(t, err)
	assert.False(t, session.Closed())
}

func TestCloseSessionInvalidDispositionFailsWholeAudit(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	// INITIATED cannot take "completed"; the audit must reject it upfront.
	record, err := f.tracker.CreateTask(ctx, storetest.SessionID,
		task.DomainBusiness, "send the revised quote", tracker.CreateOptions{})
	require.NoError(t, err)

	rec := f.request(t, http.MethodPost, sessionPath(storetest.SessionID)+"/close", map[string][]string{
		"complete": {record.ID.String()},
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	session, err := f.tracker.GetSession(ctx, storetest.SessionID)
	require.NoError(t, err)
	assert.False(t, session.Closed())
}
