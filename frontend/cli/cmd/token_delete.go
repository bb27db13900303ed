package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tractionhq/traction/frontend/cli/pkg/fail"
	"github.com/tractionhq/traction/shared"
)

type tokenDeleteOptions struct {
	Force bool
}

func NewTokenDeleteCmd() *cobra.Command {
	options := &tokenDeleteOptions{}

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !options.Force {
				if !confirmDeletion(cmd.InOrStdin(), cmd.OutOrStdout(), "token", []string{shared.APITokenKey}) {
					return nil
				}
			}

			tokenManager := getTokenManager(cmd.Context())
			if err := tokenManager.DeleteToken(shared.APITokenKey); err != nil {
				return fail.HandleError(cmd, err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&options.Force, "force", "f", false, "Delete without asking for confirmation")
	return cmd
}
