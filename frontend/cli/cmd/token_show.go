package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared"
)

type tokenShowOptions struct {
	FormatOptions FormatOptions
}

func NewTokenShowCmd() *cobra.Command {
	options := &tokenShowOptions{}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenManager := getTokenManager(cmd.Context())

			token, err := tokenManager.RetrieveToken(shared.APITokenKey)
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			display := &TokenDisplay{Token: token}
			return getFormatter(cmd.Context()).Display([]*TokenDisplay{display}, options.FormatOptions.Output)
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
