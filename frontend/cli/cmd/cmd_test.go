package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/report"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
	"github.com/tractionhq/traction/shared/config"
	"github.com/tractionhq/traction/shared/keyring"

	storetest "github.com/tractionhq/traction/backend/store/test"
)

// Fixed ids for multi-record scenarios. storetest supplies the first
// session and task id.
var (
	secondTaskID   = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa0003")
	thirdTaskID    = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa0004")
	fourthTaskID   = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa0005")
	otherSessionID = uuid.MustParse("01960a11-7c3e-7f10-9b8a-3d2f11aa00ff")
)

type MockFormatter struct {
	DisplayedObjects any
	DisplayFormat    OutputFormat
}

func (m *MockFormatter) Display(resources any, format OutputFormat) error {
	m.DisplayedObjects = resources
	m.DisplayFormat = format
	return nil
}

// testEngine is a real engine over the in-memory store with a manual clock.
// Scenarios seed records through the tracker or the store builders and move
// time with Clock.Advance.
type testEngine struct {
	*Engine
	Clock *tracker.ManualClock
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	clock := tracker.NewManualClock(storetest.BaseTime)
	st := store.NewMemoryStore()
	bus := event.NewBus(nil)
	t.Cleanup(bus.Close)

	tr, err := tracker.New(st, tracker.WithClock(clock), tracker.WithBus(bus))
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}

	reports, err := report.New(st, report.WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("failed to build report aggregator: %v", err)
	}

	cfg := &config.Config{
		Escalation: config.EscalationConfig{
			PatternAfter:        config.Duration(30 * time.Minute),
			AccountabilityAfter: config.Duration(60 * time.Minute),
			SweepInterval:       config.Duration(5 * time.Minute),
		},
		Closure: config.ClosureConfig{DefaultDisposition: config.DispositionAbandon},
		Report:  config.ReportConfig{StreakThreshold: 0.8},
	}

	return &testEngine{
		Engine: &Engine{
			Config:  cfg,
			Store:   st,
			Tracker: tr,
			Reports: reports,
			Bus:     bus,
		},
		Clock: clock,
	}
}

func mustApply(t *testing.T, engine *testEngine, sessionID, taskID uuid.UUID, ev task.Event) {
	t.Helper()
	if _, err := engine.Tracker.ApplyEvent(context.Background(), sessionID, taskID, ev); err != nil {
		t.Fatalf("failed to apply %s to %s: %v", ev, taskID, err)
	}
}

func mustCloseSession(t *testing.T, engine *testEngine, dispositions tracker.Dispositions) {
	t.Helper()
	if _, err := engine.Tracker.CloseSession(context.Background(), storetest.SessionID, dispositions); err != nil {
		t.Fatalf("failed to close session: %v", err)
	}
}

type TestSetup struct {
	CmpOptions []cmp.Option
}

type TestScenario struct {
	Name            string
	Command         []string
	Stdin           string
	SetupEngine     func(t *testing.T, engine *testEngine)
	SetupFileSystem func(fs *afero.Afero)
	SetupKeyring    func(secrets keyring.Provider)
	SetupEnv        map[string]string
	Expected        TestExpectation
}

type TestExpectation struct {
	Stdout           string
	Error            string
	DisplayedObjects any
	DisplayFormat    OutputFormat
}

func (s *TestSetup) RunTests(t *testing.T, scenarios []TestScenario) {
	if len(scenarios) == 0 {
		t.Fatalf("no scenarios provided")
	}

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			// Scenario env is authoritative; ambient TRACTION_* must not
			// leak into the run.
			t.Setenv("TRACTION_SESSION", "")
			t.Setenv("TRACTION_LOG_LEVEL", "")
			for key, value := range scenario.SetupEnv {
				t.Setenv(key, value)
			}

			engine := newTestEngine(t)
			if scenario.SetupEngine != nil {
				scenario.SetupEngine(t, engine)
			}

			fs := &afero.Afero{Fs: afero.NewMemMapFs()}
			if scenario.SetupFileSystem != nil {
				scenario.SetupFileSystem(fs)
			}

			secrets := keyring.NewMemoryProvider()
			if scenario.SetupKeyring != nil {
				scenario.SetupKeyring(secrets)
			}

			testCmd := NewRootCmd()

			var stdin bytes.Buffer
			if scenario.Stdin != "" {
				stdin.WriteString(scenario.Stdin)
				testCmd.SetIn(&stdin)
			}

			var stdout bytes.Buffer
			testCmd.SetOut(&stdout)
			testCmd.SetErr(&stdout)

			mockFormatter := &MockFormatter{}
			ctx := context.Background()
			ctx = context.WithValue(ctx, ContextKeyEngine, engine.Engine)
			ctx = context.WithValue(ctx, ContextKeyFileSystem, fs)
			ctx = context.WithValue(ctx, ContextKeyOutputRenderer, mockFormatter)
			ctx = context.WithValue(ctx, ContextKeyUserInfo, shared.NewDefaultUserInfo(fs))
			ctx = context.WithValue(ctx, ContextKeyTokenManager, shared.NewTokenManagerWithKeyring(secrets))
			ctx = context.WithValue(ctx, ContextKeyDisableFileLogs, true)

			testCmd.SetArgs(scenario.Command)

			var actual TestExpectation
			err := testCmd.ExecuteContext(ctx)
			if err != nil {
				actual.Error = err.Error()
			}

			actual.DisplayedObjects = mockFormatter.DisplayedObjects
			actual.DisplayFormat = mockFormatter.DisplayFormat
			actual.Stdout = stdout.String()

			if diff := cmp.Diff(scenario.Expected, actual, s.CmpOptions...); diff != "" {
				t.Errorf("%s() mismatch (-want +got):\n%s", scenario.Name, diff)
			}
		})
	}
}
