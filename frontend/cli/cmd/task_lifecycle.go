package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

// The lifecycle verbs map one to one to engine events. They share a runner
// so every verb renders the record the same way.

func NewTaskSolutionCmd() *cobra.Command {
	return newLifecycleCmd(
		"solution <id>",
		"Record that a solution was provided for the task",
		task.EventSolutionGiven,
	)
}

func NewTaskStartCmd() *cobra.Command {
	return newLifecycleCmd(
		"start <id>",
		"Record that work on the task has started",
		task.EventWorkStarted,
	)
}

func NewTaskCompleteCmd() *cobra.Command {
	return newLifecycleCmd(
		"complete <id>",
		"Close the task as completed",
		task.EventCompleted,
	)
}

func NewTaskAbandonCmd() *cobra.Command {
	return newLifecycleCmd(
		"abandon <id>",
		"Close the task as abandoned",
		task.EventAbandoned,
	)
}

func NewTaskDeferCmd() *cobra.Command {
	return newLifecycleCmd(
		"defer <id>",
		"Close the task as consciously deferred",
		task.EventDeferred,
	)
}

func newLifecycleCmd(use, short string, event task.Event) *cobra.Command {
	options := &struct {
		FormatOptions FormatOptions
	}{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			record, err := engine.Tracker.ApplyEvent(cmd.Context(), sessionID, taskID, event)
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
