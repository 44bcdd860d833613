package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"video-library/config"
	"video-library/repository"
)

func migrate(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update the videos table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.OpenDatabase()
			if err != nil {
				return err
			}
			if err := repository.NewRepo(db).Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", config.Database.Driver)
			return nil
		},
	}
}
