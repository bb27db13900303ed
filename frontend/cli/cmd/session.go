package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/tracker"
)

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Short:   "Manage sessions",
		Long:    `Manage sessions. A session groups the tasks of one working conversation and is audited when it closes.`,
		GroupID: "core",
	}

	cmd.AddCommand(NewSessionShowCmd())
	cmd.AddCommand(NewSessionCloseCmd())

	return cmd
}

type SessionDisplay struct {
	ID      string `json:"id" yaml:"id"`
	Started string `json:"started" yaml:"started"`
	Closed  string `json:"closed,omitempty" yaml:"closed,omitempty"`
	Status  string `json:"status" yaml:"status"`
}

type ClosureDisplay struct {
	ID     string `json:"id" yaml:"id"`
	Domain string `json:"domain" yaml:"domain"`
	State  string `json:"state" yaml:"state"`
	Reason string `json:"reason" yaml:"reason"`
	Forced bool   `json:"forced" yaml:"forced"`
}

func ConvertClosureReportToDisplay(report *tracker.ClosureReport) []*ClosureDisplay {
	displays := make([]*ClosureDisplay, len(report.Closures))
	for i, closure := range report.Closures {
		displays[i] = &ClosureDisplay{
			ID:     closure.Record.ID.String(),
			Domain: string(closure.Record.Domain),
			State:  string(closure.Record.State),
			Reason: string(closure.Record.CloseReason),
			Forced: closure.Forced,
		}
	}
	return displays
}
