// Package fail turns engine errors into messages a person at a terminal
// can act on: what went wrong, what to try, where to look next.
package fail

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/store"
	"github.com/tractionhq/traction/backend/task"
	"github.com/tractionhq/traction/backend/tracker"
	"github.com/tractionhq/traction/frontend/cli/pkg/terminal"
	"github.com/tractionhq/traction/shared/keyring"
)

type UserError struct {
	Cause       error
	UserMessage string
	Solutions   []string
	TechDetails string
	HelpURLs    []string
}

func (e *UserError) Error() string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("%s %s\n\n", terminal.ErrorSymbol, terminal.Bold(e.UserMessage)))

	if len(e.Solutions) > 0 {
		msg.WriteString(fmt.Sprintf("%s Try these solutions:\n", terminal.InfoSymbol))
		for i, solution := range e.Solutions {
			msg.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
		msg.WriteString("\n")
	}

	if e.TechDetails != "" {
		msg.WriteString(fmt.Sprintf("Technical details: %s\n", e.TechDetails))
	}

	if len(e.HelpURLs) > 0 {
		msg.WriteString("If the problem persists:\n")
		for _, url := range e.HelpURLs {
			msg.WriteString(fmt.Sprintf("%s %s\n", terminal.LinkSymbol, url))
		}
	}

	return msg.String()
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// HandleError translates engine errors into UserErrors. Errors that are
// already user facing pass through untouched.
func HandleError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*UserError); ok {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewNotFoundError(err)
	case errors.Is(err, task.ErrInvalidTransition):
		return NewInvalidTransitionError(err)
	case errors.Is(err, task.ErrImmutableRecord):
		return NewImmutableRecordError(err)
	case errors.Is(err, tracker.ErrSessionClosed):
		return NewSessionClosedError(err)
	case errors.Is(err, &keyring.ErrSecretNotFound{}):
		return NewMissingTokenError(err)
	}

	return EnhanceError(err, nil)
}

func NewNotFoundError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "No such task or session here",
		Solutions: []string{
			"Check the id with 'traction task list'",
			"Check you are in the right session: tasks are only visible from their own session",
		},
		TechDetails: err.Error(),
		HelpURLs: []string{
			"https://docs.traction.sh/tasks#sessions",
		},
	}
}

func NewInvalidTransitionError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "That move is not legal from the task's current state",
		Solutions: []string{
			"Check the current state with 'traction task get <id>'",
			"Record the missing step first: solution before start, start before complete",
			"Abandon or defer work from any open state",
		},
		TechDetails: err.Error(),
		HelpURLs: []string{
			"https://docs.traction.sh/tasks#lifecycle",
		},
	}
}

func NewImmutableRecordError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "This task is closed and its record does not change",
		Solutions: []string{
			"Create a replacement: traction task create --supersedes <id> ...",
			"Closed records are the audit trail; rewriting them would hide what happened",
		},
		TechDetails: err.Error(),
		HelpURLs: []string{
			"https://docs.traction.sh/tasks#closed-records",
		},
	}
}

func NewSessionClosedError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "This session is closed",
		Solutions: []string{
			"Start a new session id for new work",
			"Closed sessions stay closed; their tasks were audited at close",
		},
		TechDetails: err.Error(),
		HelpURLs: []string{
			"https://docs.traction.sh/sessions#closing",
		},
	}
}

func NewMissingTokenError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "No API token is stored in the keyring",
		Solutions: []string{
			"Create one: traction token create",
			"Or disable auth in the config: server.require_auth: false",
		},
		TechDetails: fmt.Sprintf("%v", err),
		HelpURLs: []string{
			"https://docs.traction.sh/serve#authentication",
		},
	}
}

func NewAlreadyRunningError(lockPath string) *UserError {
	return &UserError{
		Cause:       nil,
		UserMessage: "Another traction serve instance is already running",
		Solutions: []string{
			"Stop the running instance before starting a new one",
			"If no instance is running, remove the stale lock file",
		},
		TechDetails: fmt.Sprintf("Lock file is held at: %s", lockPath),
		HelpURLs: []string{
			"https://docs.traction.sh/serve#single-instance",
		},
	}
}

func NewPermissionError(path string, err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: fmt.Sprintf("Permission denied accessing %s", path),
		Solutions: []string{
			"Check file permissions and ownership",
			"Ensure you have write access to the directory",
			"Verify the path exists and is accessible",
		},
		TechDetails: fmt.Sprintf("Failed to access %s: %v", path, err),
		HelpURLs: []string{
			"https://docs.traction.sh/troubleshooting#permission-errors",
			"https://github.com/tractionhq/traction/issues/new",
		},
	}
}

func EnhanceError(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*UserError); ok {
		return err
	}

	errStr := err.Error()

	if os.IsPermission(err) {
		if path, ok := context["path"].(string); ok {
			return NewPermissionError(path, err)
		}
	}

	if strings.Contains(errStr, "database is locked") || strings.Contains(errStr, "SQLITE_BUSY") {
		return &UserError{
			Cause:       err,
			UserMessage: "The database is busy",
			Solutions: []string{
				"Another traction process is writing; try again in a moment",
				"Check whether a serve instance and a CLI command share the same database",
			},
			TechDetails: errStr,
			HelpURLs: []string{
				"https://docs.traction.sh/troubleshooting#database-locked",
			},
		}
	}

	if strings.Contains(errStr, "address already in use") {
		return &UserError{
			Cause:       err,
			UserMessage: "The network address is already in use by another process",
			Solutions: []string{
				"Choose a different port via server.listen or --listen-http",
				"Stop the process using this port",
				"Use a Unix socket instead: traction serve --listen-unix <path>",
			},
			TechDetails: errStr,
			HelpURLs: []string{
				"https://docs.traction.sh/troubleshooting#address-in-use",
				"https://github.com/tractionhq/traction/issues/new",
			},
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return &UserError{
			Cause:       err,
			UserMessage: "Required file or directory not found",
			Solutions: []string{
				"Verify the path exists and is accessible",
				"Check if the parent directory exists",
			},
			TechDetails: errStr,
			HelpURLs: []string{
				"https://docs.traction.sh/troubleshooting#file-not-found",
				"https://github.com/tractionhq/traction/issues/new",
			},
		}
	}

	return err
}
