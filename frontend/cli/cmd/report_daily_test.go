package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/tractionhq/traction/backend/task"

	storetest "github.com/tractionhq/traction/backend/store/test"
)

func TestReportDaily(t *testing.T) {
	setup := &TestSetup{}

	scenarios := []TestScenario{
		{
			Name: "success - summarizes the day",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithState(task.StateCompleted).
					ClosedAt(storetest.BaseTime.Add(30*time.Minute), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(secondTaskID).
					WithDescription("invoice the retainer").
					WithState(task.StateCompleted).
					ClosedAt(storetest.BaseTime.Add(5*time.Hour), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(thirdTaskID).
					WithDomain(task.DomainFamily).
					WithDescription("call the school").
					WithState(task.StateAbandoned).
					ClosedAt(storetest.BaseTime.Add(5*time.Hour+30*time.Minute), task.CloseReasonUserAbandoned).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(fourthTaskID).
					WithDescription("book the hotel").
					Build(ctx)

				engine.Clock.Advance(9 * time.Hour)
			},
			Command: []string{"report", "daily"},
			Expected: TestExpectation{
				DisplayedObjects: []*DailyDisplay{{
					Date:        "2026-03-10",
					Closed:      3,
					Completed:   2,
					Abandoned:   1,
					Open:        1,
					Completion:  2.0 / 3.0,
					Abandonment: 1.0 / 3.0,
					Pattern:     "domain FAMILY (100% abandoned)",
					Domains: []*DomainDisplay{
						{Domain: "BUSINESS", Completed: 2, Completion: 1},
						{Domain: "FAMILY", Abandoned: 1, Abandonment: 1},
					},
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - qualifying days extend the streak",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithState(task.StateCompleted).
					ClosedAt(storetest.BaseTime.Add(30*time.Minute), task.CloseReasonCompleted).
					Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithID(secondTaskID).
					WithDescription("invoice the retainer").
					WithState(task.StateCompleted).
					WithCreatedAt(storetest.BaseTime.AddDate(0, 0, -1)).
					ClosedAt(storetest.BaseTime.AddDate(0, 0, -1).Add(time.Hour), task.CloseReasonCompleted).
					Build(ctx)
			},
			Command: []string{"report", "daily", "-o", "json"},
			Expected: TestExpectation{
				DisplayedObjects: []*DailyDisplay{{
					Date:       "2026-03-10",
					Closed:     1,
					Completed:  1,
					Completion: 1,
					Streak:     2,
					Pattern:    "domain BUSINESS (0% abandoned)",
					Domains: []*DomainDisplay{
						{Domain: "BUSINESS", Completed: 1, Completion: 1},
					},
				}},
				DisplayFormat: OutputFormatJSON,
			},
		},
		{
			Name:    "success - a day with no closures",
			Command: []string{"report", "daily", "--date", "2026-03-09"},
			Expected: TestExpectation{
				DisplayedObjects: []*DailyDisplay{{
					Date: "2026-03-09",
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name:    "error - malformed date",
			Command: []string{"report", "daily", "--date", "yesterday"},
			Expected: TestExpectation{
				Error: `invalid date "yesterday", want YYYY-MM-DD`,
			},
		},
	}

	setup.RunTests(t, scenarios)
}
