package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/report"
)

const reportDateFormat = "2006-01-02"

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Short:   "Summarize closed work",
		Long:    `Summarize closed work per day: completion and abandonment rates, domain breakdowns, streaks and the strongest abandonment pattern.`,
		GroupID: "reporting",
	}

	cmd.AddCommand(NewReportDailyCmd())
	cmd.AddCommand(NewReportStreakCmd())

	return cmd
}

type DailyDisplay struct {
	Date        string           `json:"date" yaml:"date"`
	Closed      int              `json:"closed" yaml:"closed"`
	Completed   int              `json:"completed" yaml:"completed"`
	Abandoned   int              `json:"abandoned" yaml:"abandoned"`
	Deferred    int              `json:"deferred" yaml:"deferred"`
	Open        int              `json:"open" yaml:"open"`
	Completion  float64          `json:"completion" yaml:"completion"`
	Abandonment float64          `json:"abandonment" yaml:"abandonment"`
	Streak      int              `json:"streak" yaml:"streak"`
	Pattern     string           `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Domains     []*DomainDisplay `json:"domains,omitempty" yaml:"domains,omitempty"`
}

type DomainDisplay struct {
	Domain      string  `json:"domain" yaml:"domain"`
	Completed   int     `json:"completed" yaml:"completed"`
	Abandoned   int     `json:"abandoned" yaml:"abandoned"`
	Deferred    int     `json:"deferred" yaml:"deferred"`
	Completion  float64 `json:"completion" yaml:"completion"`
	Abandonment float64 `json:"abandonment" yaml:"abandonment"`
}

type StreakDisplay struct {
	Date   string `json:"date" yaml:"date"`
	Streak int    `json:"streak" yaml:"streak"`
}

func ConvertDailySummaryToDisplay(summary *report.DailySummary) *DailyDisplay {
	display := &DailyDisplay{
		Date:        summary.Date.Format(reportDateFormat),
		Closed:      summary.Closed,
		Completed:   summary.Completed,
		Abandoned:   summary.Abandoned,
		Deferred:    summary.Deferred,
		Open:        summary.OpenCount,
		Completion:  summary.CompletionRate,
		Abandonment: summary.AbandonmentRate,
		Streak:      summary.Streak,
	}

	if summary.TopPattern != nil {
		display.Pattern = fmt.Sprintf("%s %s (%.0f%% abandoned)",
			summary.TopPattern.Kind, summary.TopPattern.Label, summary.TopPattern.AbandonmentRate*100)
	}

	for _, stats := range summary.Domains {
		display.Domains = append(display.Domains, &DomainDisplay{
			Domain:      string(stats.Domain),
			Completed:   stats.Completed,
			Abandoned:   stats.Abandoned,
			Deferred:    stats.Deferred,
			Completion:  stats.CompletionRate,
			Abandonment: stats.AbandonmentRate,
		})
	}

	return display
}
