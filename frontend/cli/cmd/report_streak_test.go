package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/tractionhq/traction/backend/task"

	storetest "github.com/tractionhq/traction/backend/store/test"
)

func TestReportStreak(t *testing.T) {
	setup := &TestSetup{}

	scenarios := []TestScenario{
		{
			Name: "success - counts consecutive qualifying days",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)

				// Today and yesterday qualify; two days back was abandoned,
				// which ends the walk.
				storetest.NewRecordBuilder(t, engine.Store).
					WithState(task.StateCompleted).
					ClosedAt(storetest.BaseTime.Add(time.Hour), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(secondTaskID).
					WithDescription("invoice the retainer").
					WithState(task.StateCompleted).
					WithCreatedAt(storetest.BaseTime.AddDate(0, 0, -1)).
					ClosedAt(storetest.BaseTime.AddDate(0, 0, -1).Add(time.Hour), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(thirdTaskID).
					WithDescription("sort the inbox").
					WithState(task.StateAbandoned).
					WithCreatedAt(storetest.BaseTime.AddDate(0, 0, -2)).
					ClosedAt(storetest.BaseTime.AddDate(0, 0, -2).Add(time.Hour), task.CloseReasonUserAbandoned).
					Build(ctx)
			},
			Command: []string{"report", "streak"},
			Expected: TestExpectation{
				DisplayedObjects: []*StreakDisplay{{
					Date:   "2026-03-10",
					Streak: 2,
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - a sub-threshold day breaks the streak",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithState(task.StateCompleted).
					ClosedAt(storetest.BaseTime.Add(time.Hour), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(secondTaskID).
					WithDescription("sort the inbox").
					WithState(task.StateAbandoned).
					ClosedAt(storetest.BaseTime.Add(2*time.Hour), task.CloseReasonUserAbandoned).
					Build(ctx)
			},
			Command: []string{"report", "streak"},
			Expected: TestExpectation{
				DisplayedObjects: []*StreakDisplay{{
					Date: "2026-03-10",
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name:    "success - zero without closures",
			Command: []string{"report", "streak", "-o", "json"},
			Expected: TestExpectation{
				DisplayedObjects: []*StreakDisplay{{
					Date: "2026-03-10",
				}},
				DisplayFormat: OutputFormatJSON,
			},
		},
	}

	setup.RunTests(t, scenarios)
}
