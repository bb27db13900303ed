package cmd

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tractionhq/traction/backend/task"

	storetest "github.com/tractionhq/traction/backend/store/test"
)

func TestTaskCreate(t *testing.T) {
	// The tracker mints a random id for new records; everything else about
	// the display is deterministic under the manual clock.
	setup := &TestSetup{
		CmpOptions: []cmp.Option{cmpopts.IgnoreFields(TaskDisplay{}, "ID")},
	}

	scenarios := []TestScenario{
		{
			Name:    "success - creates an initiated record",
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "BUSINESS", "Chase the unpaid invoice"},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					Domain:        "BUSINESS",
					State:         "INITIATED",
					Description:   "Chase the unpaid invoice",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name:    "success - json output",
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "PERSONAL", "Book the dentist", "-o", "json"},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					Domain:        "PERSONAL",
					State:         "INITIATED",
					Description:   "Book the dentist",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
				}},
				DisplayFormat: OutputFormatJSON,
			},
		},
		{
			Name: "success - session from the environment",
			SetupEnv: map[string]string{
				"TRACTION_SESSION": storetest.SessionID.String(),
			},
			Command: []string{"task", "create", "-d", "FAMILY", "Call the school back"},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					Domain:        "FAMILY",
					State:         "INITIATED",
					Description:   "Call the school back",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "success - supersedes a closed record",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).
					WithState(task.StateAbandoned).
					ClosedAt(storetest.BaseTime, task.CloseReasonUserAbandoned).
					Build(ctx)
			},
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "BUSINESS", "--supersedes", storetest.TaskID.String(), "Send the quote, shorter version"},
			Expected: TestExpectation{
				DisplayedObjects: []*TaskDisplay{{
					Domain:        "BUSINESS",
					State:         "INITIATED",
					Description:   "Send the quote, shorter version",
					Created:       "0 minutes ago",
					Updated:       "0 minutes ago",
					Interventions: []string{},
					Supersedes:    storetest.TaskID.String(),
				}},
				DisplayFormat: OutputFormatTable,
			},
		},
		{
			Name: "error - open records cannot be superseded",
			SetupEngine: func(t *testing.T, engine *testEngine) {
				ctx := context.Background()
				storetest.NewSessionBuilder(t, engine.Store).Build(ctx)
				storetest.NewRecordBuilder(t, engine.Store).Build(ctx)
			},
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "BUSINESS", "--supersedes", storetest.TaskID.String(), "Second try"},
			Expected: TestExpectation{
				Error: "record 01960a11-7c3e-7f10-9b8a-3d2f11aa0002 is still open and cannot be superseded",
			},
		},
		{
			Name:    "error - unknown domain",
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "URGENT", "Do it now"},
			Expected: TestExpectation{
				Error: `unknown domain "URGENT"`,
			},
		},
		{
			Name:    "error - no session",
			Command: []string{"task", "create", "-d", "BUSINESS", "Chase the unpaid invoice"},
			Expected: TestExpectation{
				Error: "no session specified\n\nTo scope this command to a session:\n  • Pass '--session <uuid>'\n  • Or export TRACTION_SESSION=<uuid>",
			},
		},
		{
			Name:    "error - description missing",
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "-d", "BUSINESS"},
			Expected: TestExpectation{
				Error: "accepts 1 arg(s), received 0",
			},
		},
		{
			Name:    "error - domain flag missing",
			Command: []string{"task", "create", "--session", storetest.SessionID.String(), "Chase the unpaid invoice"},
			Expected: TestExpectation{
				Error: `required flag(s) "domain" not set`,
			},
		},
	}

	setup.RunTests(t, scenarios)
}
