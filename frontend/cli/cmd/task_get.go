package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

type taskGetOptions struct {
	FormatOptions FormatOptions
}

func NewTaskGetCmd() *cobra.Command {
	options := &taskGetOptions{}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a task by ID",
		Args:  cobra.ExactArgs(1),
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
			record, err := engine.Tracker.GetTask(cmd.Context(), sessionID, taskID)
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
