package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/task"
)

func NewTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Short:   "Manage tasks",
		Long:    `Manage tasks through their lifecycle, from creation to completion, abandonment, or deferral.`,
		GroupID: "core",
	}

	cmd.AddCommand(NewTaskCreateCmd())
	cmd.AddCommand(NewTaskGetCmd())
	cmd.AddCommand(NewTaskListCmd())
	cmd.AddCommand(NewTaskRefineCmd())

	cmd.AddCommand(NewTaskSolutionCmd())
	cmd.AddCommand(NewTaskStartCmd())
	cmd.AddCommand(NewTaskCompleteCmd())
	cmd.AddCommand(NewTaskAbandonCmd())
	cmd.AddCommand(NewTaskDeferCmd())

	return cmd
}

type TaskDisplay struct {
	ID            string   `json:"id" yaml:"id"`
	Domain        string   `json:"domain" yaml:"domain"`
	State         string   `json:"state" yaml:"state"`
	Description   string   `json:"description" yaml:"description"`
	Created       string   `json:"created" yaml:"created"`
	Updated       string   `json:"updated" yaml:"updated"`
	Switches      int      `json:"switches" yaml:"switches"`
	Interventions []string `json:"interventions,omitempty" yaml:"interventions,omitempty"`
	Reason        string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Supersedes    string   `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`
}

func ConvertRecordToDisplay(record *task.Record, now time.Time) *TaskDisplay {
	if record == nil {
		return nil
	}

	interventions := make([]string, len(record.InterventionsSent))
	for i, tier := range record.InterventionsSent {
		interventions[i] = string(tier)
	}

	display := &TaskDisplay{
		ID:            record.ID.String(),
		Domain:        string(record.Domain),
		State:         string(record.State),
		Description:   record.Description,
		Created:       FormatRelativeTime(record.CreatedAt, now),
		Updated:       FormatRelativeTime(record.LastTransitionAt, now),
		Switches:      record.ContextSwitchCount,
		Interventions: interventions,
		Reason:        string(record.CloseReason),
	}
	if record.Supersedes != nil {
		display.Supersedes = record.Supersedes.String()
	}
	return display
}

func ConvertRecordsToDisplay(records []*task.Record, now time.Time) []*TaskDisplay {
	displays := make([]*TaskDisplay, len(records))
	for i, record := range records {
		displays[i] = ConvertRecordToDisplay(record, now)
	}
	return displays
}
