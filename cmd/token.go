package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"video-library/config"
	"video-library/pkg/identity"
)

func token(config *config.Config) *cobra.Command {
	var owner, username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue a bearer token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := identity.NewProvider(config.Auth.JWTSecret, config.Auth.Issuer, config.Auth.TokenTTL)
			if err != nil {
				return err
			}
			signed, err := provider.Issue(owner, username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id the token names")
	cmd.Flags().StringVar(&username, "username", "", "display name stored in the token")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
