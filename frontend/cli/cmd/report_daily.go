package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

type reportDailyOptions struct {
	Date          string
	FormatOptions FormatOptions
}

func NewReportDailyCmd() *cobra.Command {
	options := &reportDailyOptions{}

	cmd := &cobra.Command{
		Use:   "daily [flags]",
		Short: "Summarize one day of closed work",
		Example: `  # Summarize today
  traction report daily

  # Summarize a past day as JSON
  traction report daily --date 2026-03-10 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := getEngine(cmd.Context())

			date := engine.Tracker.Clock().Now()
			if options.Date != "" {
				parsed, err := time.ParseInLocation(reportDateFormat, options.Date, engine.Reports.Location())
				if err != nil {
					return fmt.Errorf("invalid date %q, want YYYY-MM-DD", options.Date)
				}
				date = parsed
			}

			summary, err := engine.Reports.Daily(cmd.Context(), date)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			display := ConvertDailySummaryToDisplay(summary)
			return getFormatter(cmd.Context()).Display([]*DailyDisplay{display}, options.FormatOptions.Output)
		},
	}

	cmd.Flags().StringVar(&options.Date, "date", "", "The day to summarize (YYYY-MM-DD), defaults to today")

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
