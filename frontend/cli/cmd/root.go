package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tractionhq/traction/shared"
)

// Build metadata, injected through -ldflags at release time.
var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const sentryDSN = "https://e74d91c2a06b4f02b07c55f1d8a24e91@o4506881427078400.ingest.us.sentry.io/4506881429176320"

type globalOptions struct {
	LogLevel LogLevel
	Session  string
}

func NewRootCmd() *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:     "traction",
		Short:   "Traction: Keep tasks moving or close them honestly.",
		Long:    figure.NewColorFigure("traction", "standard", "blue", true).String(),
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		// Errors are rendered once, by Execute, through the fail package.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			userInfo := getUserInfo(cmd.Context())

			options.LogLevel = resolveLogLevel(cmd, &options)
			slog.SetDefault(slog.New(slog.NewJSONHandler(setupLogSink(cmd.Context(), userInfo, cmd.OutOrStdout()), &slog.HandlerOptions{
				Level: options.LogLevel.SlogLevel(),
			})))
			cmd.SetContext(setGlobalOptions(cmd.Context(), &options))
			cmd.SetContext(setConfigStore(cmd.Context(), getConfigStore(cmd.Context())))

			if requiresEngine(cmd) {
				if err := setupEngine(cmd); err != nil {
					slog.Error("failed to set up engine", "error", err)
					return err
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardownEngine(cmd)
		},
	}

	cmd.PersistentFlags().Var(&options.LogLevel, "log-level", "set the log level")
	cmd.PersistentFlags().StringVar(&options.Session, "session", "", "session id to scope commands to (overrides TRACTION_SESSION)")

	cmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands"},
		&cobra.Group{ID: "reporting", Title: "Reporting"},
		&cobra.Group{ID: "system", Title: "System Commands"},
	)

	cmd.AddCommand(NewTaskCmd(), NewSessionCmd(), NewSweepCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewServeCmd(), NewTokenCmd())
	return cmd
}

func Execute() {
	defer reportPanic()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize sentry: %s\n", err)
	}

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		captureFailure(err)
		os.Exit(1)
	}

	sentry.Flush(2 * time.Second)
}

// captureFailure reports a failed command run, tagged with the component
// the error came from when it is one of ours.
func captureFailure(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var terr *shared.TractionError
		if errors.As(err, &terr) {
			scope.SetTag("error_source", terr.Source.String())
		}
		sentry.CaptureException(err)
	})
	sentry.Flush(2 * time.Second)
}

func reportPanic() {
	r := recover()
	if r == nil {
		return
	}

	sentry.CurrentHub().Recover(r)
	sentry.Flush(2 * time.Second)
	fmt.Fprintf(os.Stderr, "Panic occurred: %v\n", r)
	fmt.Fprintf(os.Stderr, "Stack:\n%s\n", debug.Stack())
	os.Exit(1)
}

// resolveSession returns the session a task scoped command operates in.
// The flag wins over the TRACTION_SESSION environment variable.
func resolveSession(cmd *cobra.Command) (uuid.UUID, error) {
	raw := ""
	if options := getGlobalOptions(cmd.Context()); options != nil {
		raw = options.Session
	}

	if raw == "" {
		raw = os.Getenv("TRACTION_SESSION")
	}

	if raw == "" {
		return uuid.Nil, fmt.Errorf("no session specified\n\nTo scope this command to a session:\n  • Pass '--session <uuid>'\n  • Or export TRACTION_SESSION=<uuid>")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", raw, err)
	}
	return id, nil
}

func confirmDeletion(stdin io.Reader, stdout io.Writer, kind string, idOrNames []string) bool {
	if len(idOrNames) == 0 {
		return false
	}

	if len(idOrNames) > 1 {
		kind += "s"
	}
	return confirm(stdin, stdout,
		fmt.Sprintf("Are you sure you want to delete %s %s?", kind, strings.Join(idOrNames, " ")))
}

func confirm(stdin io.Reader, stdout io.Writer, message string) bool {
	fmt.Fprintf(stdout, "%s (y/n): ", message)

	scanner := bufio.NewScanner(stdin)
	if !scanner.Scan() {
		return false
	}

	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "y" || answer == "yes"
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (e *LogLevel) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func (e *LogLevel) Set(v string) error {
	switch LogLevel(v) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		*e = LogLevel(v)
		return nil
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (e *LogLevel) Type() string {
	return "log-level"
}

func (e *LogLevel) SlogLevel() slog.Level {
	switch *e {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolveLogLevel(cmd *cobra.Command, options *globalOptions) LogLevel {
	if cmd.Flags().Changed("log-level") {
		return options.LogLevel
	}

	var fromEnv LogLevel
	if err := fromEnv.Set(os.Getenv("TRACTION_LOG_LEVEL")); err == nil {
		return fromEnv
	}
	return LogLevelInfo
}

// setupLogSink tees logs into a rotated file under the user's log dir.
// Tests disable the file sink through the context.
func setupLogSink(ctx context.Context, userInfo shared.UserInfo, stdout io.Writer) io.Writer {
	if fileLogsDisabled(ctx) {
		return stdout
	}

	logDir, err := userInfo.TractionLogDir()
	if err != nil {
		return stdout
	}

	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "traction.json"),
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
	return io.MultiWriter(stdout, fileLogger)
}
