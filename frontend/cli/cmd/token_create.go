package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/backend/api"
	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared"
)

type tokenCreateOptions struct {
	FormatOptions FormatOptions
}

func NewTokenCreateCmd() *cobra.Command {
	options := &tokenCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API token and store it in the keyring",
		Long: `Create a new API token and store it in the keyring.

Any previously stored token is replaced; clients holding the old token
stop authenticating the next time serve starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := api.GenerateToken()
			if err != nil {
				return fail.HandleError(cmd, err)
			}

			tokenManager := getTokenManager(cmd.Context())
			if err := tokenManager.StoreToken(shared.APITokenKey, token); err != nil {
				return fail.HandleError(cmd, err)
			}

			display := &TokenDisplay{Token: token}
			return getFormatter(cmd.Context()).Display([]*TokenDisplay{display}, options.FormatOptions.Output)
		},
	}

	addFormatOptions(cmd, &options.FormatOptions)
	return cmd
}
