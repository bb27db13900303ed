package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

type reportStreakOptions struct {
	FormatOptions FormatOptions
}

func NewReportStreakCmd() *cobra.Command {
	options := &reportStreakOptions{}

	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show the current completion streak",
		Long:  `Show how many consecutive days, counting back from today, met the completion threshold.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := getEngine(cmd.Context())

			date := engine.Tracker.Clock().Now()
			streak, err := engine.Reports.Streak(cmd.Context(), date)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			display := &StreakDisplay{
				Date:   date.In(engine.Reports.Location()).Format(reportDateFormat),
				Streak: streak,
			}
			return getFormatter(cmd.Context()).Display([]*StreakDisplay{display}, options.FormatOptions.Output)
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
