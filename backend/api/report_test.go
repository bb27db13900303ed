package api_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tractionhq/traction/backend/api"
	"github.com/tractionhq/traction/backend/api/conv"
	storetest "github.com/tractionhq/traction/backend/store/test"
	"github.com/tractionhq/traction/backend/task"
)

// seedClosed plants a closed record on the given day without going through
// the lifecycle.
func seedClosed(t *testing.T, f *fixture, domain task.Domain, state task.State, closedAt time.Time) {
	t.Helper()

	reason := task.CloseReasonCompleted
	switch state {
	case task.StateAbandoned:
		reason = task.CloseReasonUserAbandoned
	case task.StateDeferred:
		reason = task.CloseReasonUserDeferred
	}

	storetest.NewRecordBuilder(t, f.store).
		WithID(uuid.New()).
		WithDomain(domain).
		WithState(state).
		WithCreatedAt(closedAt.Add(-time.Hour)).
		ClosedAt(closedAt, reason).
		Build(context.Background())
}

func TestDailyReportEndpoint(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	storetest.NewSessionBuilder(t, f.store).Build(ctx)

	day := storetest.BaseTime
	seedClosed(t, f, task.DomainBusiness, task.StateCompleted, day.Add(time.Hour))
	seedClosed(t, f, task.DomainBusiness, task.StateCompleted, day.Add(2*time.Hour))
	seedClosed(t, f, task.DomainFamily, task.StateAbandoned, day.Add(3*time.Hour))
	seedClosed(t, f, task.DomainPersonal, task.StateDeferred, day.Add(4*time.Hour))

	// Open record created the same day counts as in progress, not closed.
	storetest.NewRecordBuilder(t, f.store).
		WithID(uuid.New()).
		WithState(task.StateInProgress).
		WithCreatedAt(day.Add(time.Hour)).
		Build(ctx)

	rec := f.request(t, http.MethodGet, "/api/v1/reports/daily?date=2026-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decode[conv.DailySummary](t, rec)
	assert.Equal(t, "2026-03-10", summary.Date)
	assert.Equal(t, 4, summary.Closed)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 1, summary.Abandoned)
	assert.Equal(t, 1, summary.Deferred)
	assert.Equal(t, 1, summary.OpenCount)
	assert.InDelta(t, 0.5, summary.CompletionRate, 1e-9)
	assert.InDelta(t, 0.25, summary.AbandonmentRate, 1e-9)
	assert.NotEmpty(t, summary.Domains)
	require.NotNil(t, summary.TopPattern)
	assert.Equal(t, "FAMILY", summary.TopPattern.Label)
}

func TestDailyReportDefaultsToCurrentDay(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	storetest.NewSessionBuilder(t, f.store).Build(ctx)
	seedClosed(t, f, task.DomainBusiness, task.StateCompleted, storetest.BaseTime.Add(time.Hour))

	rec := f.request(t, http.MethodGet, "/api/v1/reports/daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decode[conv.DailySummary](t, rec)
	assert.Equal(t, "2026-03-10", summary.Date)
	assert.Equal(t, 1, summary.Closed)
}

func TestDailyReportRejectsBadDate(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})

	rec := f.request(t, http.MethodGet, "/api/v1/reports/daily?date=March+10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreakEndpoint(t *testing.T) {
	f := newFixture(t, api.ServerOptions{})
	ctx := context.Background()

	storetest.NewSessionBuilder(t, f.store).Build(ctx)

	// Three qualifying days, then a broken one further back.
	for _, day := range []time.Time{
		storetest.BaseTime,
		storetest.BaseTime.AddDate(0, 0, -1),
		storetest.BaseTime.AddDate(0, 0, -2),
	} {
		seedClosed(t, f, task.DomainBusiness, task.StateCompleted, day.Add(time.Hour))
	}
	seedClosed(t, f, task.DomainBusiness, task.StateAbandoned, storetest.BaseTime.AddDate(0, 0, -3))

	rec := f.request(t, http.MethodGet, "/api/v1/reports/streak", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "2026-03-10", body["date"])
	assert.EqualValues(t, 3, body["streak"])
}
