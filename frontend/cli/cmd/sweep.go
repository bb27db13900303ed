package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/frontend/cli/pkg/terminal"
)

type sweepOptions struct {
	FormatOptions FormatOptions
}

func NewSweepCmd() *cobra.Command {
	options := &sweepOptions{}

	cmd := &cobra.Command{
		Use:     "sweep",
		Short:   "Check every open task for overdue escalation",
		GroupID: "core",
		Long: `Check every open task against the escalation ladder and raise the
interventions that are due. The serve command runs this on an interval;
running it by hand is useful after a long pause.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := getEngine(cmd.Context())

			interventions, err := engine.Tracker.Sweep(cmd.Context())
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			now := engine.Tracker.Clock().Now()
			displays := make([]*InterventionDisplay, len(interventions))
			for i, intervention := range interventions {
				displays[i] = ConvertInterventionToDisplay(intervention, now)
			}

			if err := getFormatter(cmd.Context()).Display(displays, options.FormatOptions.Output); err != nil {
				return err
			}

			if options.FormatOptions.Output != OutputFormatJSON {
				if len(interventions) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s nothing overdue\n", terminal.SuccessSymbol)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d interventions raised\n", terminal.AttentionSymbol, len(interventions))
				}
			}
			return nil
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}

type InterventionDisplay struct {
	Task    string `json:"task" yaml:"task"`
	Tier    string `json:"tier" yaml:"tier"`
	Message string `json:"message" yaml:"message"`
	Raised  string `json:"raised" yaml:"raised"`
}

func ConvertInterventionToDisplay(intervention *task.Intervention, now time.Time) *InterventionDisplay {
	return &InterventionDisplay{
		Task:    intervention.TaskID.String(),
		Tier:    string(intervention.Tier),
		Message: intervention.Message,
		Raised:  FormatRelativeTime(intervention.At, now),
	}
}
