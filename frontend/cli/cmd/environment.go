package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/escalation"
	"github.com/tractionhq/traction/backend/event"
	"github.com/tractionhq/traction/backend/report"
	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/shared"
	"github.com/tractionhq/traction/shared/config"
)

// ContextKey identifies a collaborator injected into the command context.
// Tests swap these out for fakes; production wiring happens in root.go.
type ContextKey string

const (
	ContextKeyEngine          ContextKey = "engine"
	ContextKeyFileSystem      ContextKey = "file-system"
	ContextKeyUserInfo        ContextKey = "user-info"
	ContextKeyOutputRenderer  ContextKey = "output-renderer"
	ContextKeyConfigStore     ContextKey = "config-store"
	ContextKeyTokenManager    ContextKey = "token-manager"
	ContextKeyGlobalOptions   ContextKey = "global-options"
	ContextKeyDisableFileLogs ContextKey = "disable-file-logs"
)

// Engine bundles the tracker and everything it feeds. Commands that talk to
// the engine pull this from their context; `serve` additionally exposes the
// router and registry over HTTP.
type Engine struct {
	Config   *config.Config
	Store    store.Store
	Tracker  *tracker.Tracker
	Reports  *report.Aggregator
	Bus      *event.Bus
	Router   *event.EventRouter
	Registry *prometheus.Registry

	detachBridge func()
	owned        bool
}

// buildEngine wires the production engine from config: sqlite store, event
// bus with metrics, router bridge, tracker and report aggregator.
func buildEngine(cfg *config.Config) (*Engine, error) {
	registry := prometheus.NewRegistry()
	bus := event.NewBus(registry)
	router := event.NewEventRouter(0)
	detach := event.RegisterBridge(bus, router)

	fail := func(err error) (*Engine, error) {
		detach()
		router.Close()
		bus.Close()
		return nil, err
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}

	policy, err := escalation.NewPolicy(
		cfg.Escalation.PatternAfter.Std(),
		cfg.Escalation.AccountabilityAfter.Std(),
	)
	if err != nil {
		st.Close()
		return fail(fmt.Errorf("escalation policy: %w", err))
	}

	disposition := task.EventAbandoned
	if cfg.Closure.DefaultDisposition == config.DispositionDefer {
		disposition = task.EventDeferred
	}

	tr, err := tracker.New(st,
		tracker.WithBus(bus),
		tracker.WithEscalation(policy),
		tracker.WithDefaultDisposition(disposition),
	)
	if err != nil {
		st.Close()
		return fail(fmt.Errorf("tracker: %w", err))
	}

	reports, err := report.New(st, report.WithStreakThreshold(cfg.Report.StreakThreshold))
	if err != nil {
		st.Close()
		return fail(fmt.Errorf("report aggregator: %w", err))
	}

	return &Engine{
		Config:       cfg,
		Store:        st,
		Tracker:      tr,
		Reports:      reports,
		Bus:          bus,
		Router:       router,
		Registry:     registry,
		detachBridge: detach,
		owned:        true,
	}, nil
}

// Close tears the engine down in reverse construction order. The bridge
// detaches before the bus drains so no event lands on a closed router.
func (e *Engine) Close() error {
	if e.detachBridge != nil {
		e.detachBridge()
	}
	if e.Router != nil {
		e.Router.Close()
	}
	if e.Bus != nil {
		e.Bus.Close()
	}
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

func getEngine(ctx context.Context) *Engine {
	if engine, ok := ctx.Value(ContextKeyEngine).(*Engine); ok {
		return engine
	}
	return nil
}

func getFileSystem(ctx context.Context) *afero.Afero {
	if fs, ok := ctx.Value(ContextKeyFileSystem).(*afero.Afero); ok {
		return fs
	}
	return &afero.Afero{Fs: afero.NewOsFs()}
}

func getUserInfo(ctx context.Context) shared.UserInfo {
	if info, ok := ctx.Value(ContextKeyUserInfo).(shared.UserInfo); ok {
		return info
	}
	return shared.NewDefaultUserInfo(getFileSystem(ctx))
}

func getFormatter(ctx context.Context) Formatter {
	if formatter, ok := ctx.Value(ContextKeyOutputRenderer).(Formatter); ok {
		return formatter
	}
	return NewTabFormatter(os.Stdout)
}

func getConfigStore(ctx context.Context) *config.Store {
	if cs, ok := ctx.Value(ContextKeyConfigStore).(*config.Store); ok {
		return cs
	}
	return config.NewStore(getFileSystem(ctx), getUserInfo(ctx))
}

func setConfigStore(ctx context.Context, cs *config.Store) context.Context {
	return context.WithValue(ctx, ContextKeyConfigStore, cs)
}

func getGlobalOptions(ctx context.Context) *globalOptions {
	if options, ok := ctx.Value(ContextKeyGlobalOptions).(*globalOptions); ok {
		return options
	}
	return nil
}

func setGlobalOptions(ctx context.Context, options *globalOptions) context.Context {
	return context.WithValue(ctx, ContextKeyGlobalOptions, options)
}

func getTokenManager(ctx context.Context) *shared.TokenManager {
	if tm, ok := ctx.Value(ContextKeyTokenManager).(*shared.TokenManager); ok {
		return tm
	}
	return shared.NewTokenManager()
}

func fileLogsDisabled(ctx context.Context) bool {
	disabled, ok := ctx.Value(ContextKeyDisableFileLogs).(bool)
	return ok && disabled
}

// setupEngine lazily constructs the engine for commands that need one. Tests
// short-circuit it by injecting ContextKeyEngine.
func setupEngine(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if getEngine(ctx) != nil {
		return nil
	}

	cfg, err := getConfigStore(ctx).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	cmd.SetContext(context.WithValue(ctx, ContextKeyEngine, engine))
	return nil
}

// teardownEngine closes an engine this process constructed. Injected engines
// stay open, their owner decides their lifetime.
func teardownEngine(cmd *cobra.Command) error {
	engine := getEngine(cmd.Context())
	if engine == nil || !engine.owned {
		return nil
	}
	return engine.Close()
}

// requiresEngine reports whether a command needs the full engine stack.
// Token and shell-completion commands only touch the keyring or stdout.
func requiresEngine(cmd *cobra.Command) bool {
	if !cmd.Runnable() {
		return false
	}

	skipCommands := []string{"help", "completion.", "token."}
	cmdName := cmd.Name()
	if parent := cmd.Parent(); parent != nil && parent.Parent() != nil {
		cmdName = parent.Name() + "." + cmdName
	}

	for _, skipCmd := range skipCommands {
		if strings.HasPrefix(cmdName, skipCmd) {
			return false
		}
	}

	return true
}
