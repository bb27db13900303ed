package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared/conv"
)

type taskCreateOptions struct {
	Domain        string
	Supersedes    string
	FormatOptions FormatOptions
}

func NewTaskCreateCmd() *cobra.Command {
	options := &taskCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create [flags]",
		Short: "Create a new task",
		Example: `  # Create a business task
  traction task create --session 4f0e... -d BUSINESS "Chase the unpaid invoice"

  # Create a replacement for a task that was abandoned
  traction task create --session 4f0e... -d PERSONAL --supersedes 7c1a... "Book the dentist, shorter version"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(cmd)
			if err != nil {
				return err
			}

			domain, err := task.ParseDomain(options.Domain)
			if err != nil {
				return err
			}

			createOptions := tracker.CreateOptions{}
			if options.Supersedes != "" {
				supersedes, err := uuid.Parse(options.Supersedes)
				if err != nil {
					return fail.HandleError(cmd, err)
				}
				createOptions.Supersedes = conv.Ptr(supersedes)
			}

			engine := getEngine(cmd.Context())
			record, err := engine.Tracker.CreateTask(cmd.Context(), sessionID, domain, args[0], createOptions)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			display := ConvertRecordToDisplay(record, engine.Tracker.Clock().Now())
			return getFormatter(cmd.Context()).Display([]*TaskDisplay{display}, options.FormatOptions.Output)
		},
	}

	cmd.Flags().StringVarP(&options.Domain, "domain", "d", "", "The life domain of the task (BUSINESS, MICHAEL, FAMILY, PERSONAL)")
	cmd.Flags().StringVar(&options.Supersedes, "supersedes", "", "The id of a closed task this one replaces")
	cmd.MarkFlagRequired("domain")

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
