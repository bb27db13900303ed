package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared/conv"
)

type taskListOptions struct {
	Domain        string
	States        []string
	FormatOptions FormatOptions
}

func NewTaskListCmd() *cobra.Command {
	options := &taskListOptions{}

	cmd := &cobra.Command{
		Use:     "list [flags]",
		Short:   "List tasks in the session",
		Aliases: []string{"ls"},
		Example: `  # List every task in the session
  traction task list --session 4f0e...

  # List open work only
  traction task ls --session 4f0e... -s INITIATED -s SOLUTION_PROVIDED -s IN_PROGRESS

  # List abandoned family tasks as JSON
  traction task ls --session 4f0e... -d FAMILY -s ABANDONED -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(cmd)
			if err != nil {
				return err
			}

			filter := store.TaskFilter{SessionID: conv.Ptr(sessionID)}

			if options.Domain != "" {
				domain, err := task.ParseDomain(options.Domain)
				if err != nil {
					return err
				}
				filter.Domain = conv.Ptr(domain)
			}

			for _, raw := range options.States {
				state, err := task.ParseState(raw)
				if err != nil {
					return err
				}
				filter.States = append(filter.States, state)
			}

			engine := getEngine(cmd.Context())
			records, err := engine.Tracker.ListTasks(cmd.Context(), filter)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			displays := ConvertRecordsToDisplay(records, engine.Tracker.Clock().Now())
			return getFormatter(cmd.Context()).Display(displays, options.FormatOptions.Output)
		},
	}

	cmd.Flags().StringVarP(&options.Domain, "domain", "d", "", "Only list tasks in this domain")
	cmd.Flags().StringArrayVarP(&options.States, "state", "s", nil, "Only list tasks in this state (repeatable)")

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
