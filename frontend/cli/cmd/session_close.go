package cmd

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/frontend/cli/pkg/terminal"
)

type sessionCloseOptions struct {
	Complete      []string
	Defer         []string
	Abandon       []string
	FormatOptions FormatOptions
}

func NewSessionCloseCmd() *cobra.Command {
	options := &sessionCloseOptions{}

	cmd := &cobra.Command{
		Use:   "close [flags]",
		Short: "Close the session and audit every open task",
		Long: `Close the session and audit every open task.

Tasks named by --complete, --defer or --abandon are closed with that outcome.
Every other open task is force closed with the configured default disposition
so nothing slips away silently.`,
		Example: `  # Close, completing one task and consciously deferring another
  traction session close --session 4f0e... --complete 7c1a... --defer 9d2b...

  # Close and let the default disposition catch everything still open
  traction session close --session 4f0e...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(cmd)
			if err != nil {
				return err
			}

			dispositions, err := collectDispositions(options)
			if err != nil {
				return err
			}

			engine := getEngine(cmd.Context())
			report, err := engine.Tracker.CloseSession(cmd.Context(), sessionID, dispositions)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			if err := getFormatter(cmd.Context()).Display(ConvertClosureReportToDisplay(report), options.FormatOptions.Output); err != nil {
				return err
			}

			if options.FormatOptions.Output != OutputFormatJSON {
				printClosureSummary(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&options.Complete, "complete", nil, "Close this task as completed (repeatable)")
	cmd.Flags().StringArrayVar(&options.Defer, "defer", nil, "Close this task as deferred (repeatable)")
	cmd.Flags().StringArrayVar(&options.Abandon, "abandon", nil, "Close this task as abandoned (repeatable)")

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}

func printClosureSummary(out io.Writer, report *tracker.ClosureReport) {
	var completed, deferred, abandoned, forced int
	for _, closure := range report.Closures {
		switch closure.Record.State {
		case task.StateCompleted:
			completed++
		case task.StateDeferred:
			deferred++
		case task.StateAbandoned:
			abandoned++
		}
		if closure.Forced {
			forced++
		}
	}

	fmt.Fprintf(out, "\n%s session closed: %d completed, %d deferred, %d abandoned",
		terminal.SuccessSymbol, completed, deferred, abandoned)
	if forced > 0 {
		fmt.Fprintf(out, " (%s %d forced)", terminal.WarningSymbol, forced)
	}
	fmt.Fprintln(out)
}

func collectDispositions(options *sessionCloseOptions) (tracker.Dispositions, error) {
	dispositions := tracker.Dispositions{}

	groups := []struct {
		ids   []string
		event task.Event
	}{
		{options.Complete, task.EventCompleted},
		{options.Defer, task.EventDeferred},
		{options.Abandon, task.EventAbandoned},
	}

	for _, group := range groups {
		for _, raw := range group.ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid task id %q: %w", raw, err)
			}
			if _, ok := dispositions[id]; ok {
				return nil, fmt.Errorf("conflicting dispositions for %s", id)
			}
			dispositions[id] = group.event
		}
	}

	return dispositions, nil
}
