package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
)

type sessionShowOptions struct {
	FormatOptions FormatOptions
}

func NewSessionShowCmd() *cobra.Command {
	options := &sessionShowOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := resolveSession(cmd)
			if err != nil {
				return err
			}

			engine := getEngine(cmd.Context())
			session, err := engine.Tracker.GetSession(cmd.Context(), sessionID)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			now := engine.Tracker.Clock().Now()
			display := &SessionDisplay{
				ID:      session.ID.String(),
				Started: FormatRelativeTime(session.StartedAt, now),
				Status:  "open",
			}
			if session.ClosedAt != nil {
				display.Closed = FormatRelativeTime(*session.ClosedAt, now)
				display.Status = "closed"
			}

			return getFormatter(cmd.Context()).Display([]*SessionDisplay{display}, options.FormatOptions.Output)
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
