package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

type taskRefineOptions struct {
	FormatOptions FormatOptions
}

func NewTaskRefineCmd() *cobra.Command {
	options := &taskRefineOptions{}

	cmd := &cobra.Command{
		Use:   "refine <id> <description>",
		Short: "Rewrite the description of a task that has not started yet",
		Long: `Rewrite the description of a task while it is still INITIATED.

Once a solution has been provided the description is part of the record and
can no longer be edited; create a superseding task instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(cmd)
			if err != nil {
				return err
			}

			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			engine := getEngine(cmd.Context())
			record, err := engine.Tracker.RefineDescription(cmd.Context(), sessionID, taskID, args[1])
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			display := ConvertRecordToDisplay(record, engine.Tracker.Clock().Now())
			return getFormatter(cmd.Context()).Display([]*TaskDisplay{display}, options.FormatOptions.Output)
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
