package cmd

import (
	"github.com/spf13/cobra"
)

func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Manage the API token",
		GroupID: "system",
		Long: `Manage the bearer token that guards the HTTP API.

The token lives in the OS keyring. The serve command reads it from there
when the config enables require_auth; front-ends send it as a Bearer header.`,
	}

	cmd.AddCommand(NewTokenCreateCmd())
	cmd.AddCommand(NewTokenShowCmd())
	cmd.AddCommand(NewTokenDeleteCmd())

	return cmd
}

type TokenDisplay struct {
	Token string `json:"token" yaml:"token"`
}
