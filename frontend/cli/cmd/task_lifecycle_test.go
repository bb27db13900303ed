package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/tractionhq/traction/backend/task"

	storetest "github.com/tractionhq/traction/backend/store/test"
)

func seedInitiatedRecord(t *testing.T, engine *testEngine) {
	t.Helper()
	ctx := context.Background()
	storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
	storetest.NewRecordBuilder(t, engine.Store).Build(ctx)
}

func TestTaskLifecycle(t *testing.T) {
	setup := &TestSetup{}

	scenarios := []TestScenario{
		{
			Name:        "success - solution marks the record waiting",
			SetupEngine: seedInitiatedRecord,
			Command:     []string{"task", "solution", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					ID:            storetest.TaskID.String(),
					Domain:        "BUSINESS",
					State:         "SOLUTION_PROVIDED",
					Description:   "send the revised quote",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - start begins work",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				seedInitiatedRecord(t, engine)
				mustApply(t, engine, storetest.SessionID, storetest.TaskID, task.EventSolutionGiven)
			},
			Command: []string{"task", "start", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					ID:            storetest.TaskID.String(),
					Domain:        "BUSINESS",
					State:         "IN_PROGRESS",
					Description:   "send the revised quote",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - complete closes the record",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				seedInitiatedRecord(t, engine)
				mustApply(t, engine, storetest.SessionID, storetest.TaskID, task.EventSolutionGiven)
				mustApply(t, engine, storetest.SessionID, storetest.TaskID, task.EventWorkStarted)
				engine.Clock.Advance(20 * time.Minute)
			},
			Command: []string{"task", "complete", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					ID:            storetest.TaskID.String(),
					Domain:        "BUSINESS",
					State:         "COMPLETED",
					Description:   "send the revised quote",
					Created:       "20 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
					Reason:        "completed",
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name:        "success - defer straight from initiated",
			SetupEngine: seedInitiatedRecord,
			Command:     []string{"task", "defer", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					ID:            storetest.TaskID.String(),
					Domain:        "BUSINESS",
					State:         "DEFERRED",
					Description:   "send the revised quote",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
					Reason:        "user-deferred",
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - abandon after a solution",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				seedInitiatedRecord(t, engine)
				mustApply(t, engine, storetest.SessionID, storetest.TaskID, task.EventSolutionGiven)
			},
			Command: []string{"task", "abandon", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					ID:            storetest.TaskID.String(),
					Domain:        "BUSINESS",
					State:         "ABANDONED",
					Description:   "send the revised quote",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
					Reason:        "user-abandoned",
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name:        "error - complete before a solution",
			SetupEngine: seedInitiatedRecord,
			Command:     []string{"task", "complete", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				Error: `❌ That move is not legal from the task's current state

ⓘ Try these solutions:
  1. Check the current state with 'traction task get <id>'
  2. Record the missing step first: solution before start, start before complete
  3. Abandon or defer work from any open state

Technical details: invalid transition: "completed" is not valid in state INITIATED
If the problem persists:
→ https://docs.traction.sh/tasks#lifecycle
`,
			},
		},
		{
			Name: "error - closed records are immutable",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				seedInitiatedRecord(t, engine)
				mustApply(t, engine, storetest.SessionID, storetest.TaskID, task.EventDeferred)
			},
			Command: []string{"task", "start", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				Error: `❌ This task is closed and its record does not change

ⓘ Try these solutions:
  1. Create a replacement: traction task create --supersedes <id> ...
  2. Closed records are the audit trail; rewriting them would hide what happened

Technical details: record is terminal and immutable: DEFERRED records reject "workStarted"
If the problem persists:
→ https://docs.traction.sh/tasks#closed-records
`,
			},
		},
		{
			Name: "error - session is closed",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				seedInitiatedRecord(t, engine)
				mustCloseSession(t, engine, nil)
			},
			Command: []string{"task", "solution", storetest.TaskID.String(), "--session", storetest.SessionID.String()},
			Expected: TestExpectation{
				Error: `❌ This session is closed

ⓘ Try these solutions:
  1. Start a new session id for new work
  2. Closed sessions stay closed; their tasks were audited at close

Technical details: session is closed: 01960a11-7c3e-7f10-9b8a-3d2f11aa0001
If the problem persists:
→ https://docs.traction.sh/sessions#closing
`,
			},
		},
	}

	setup.RunTests(t, scenarios)
}
