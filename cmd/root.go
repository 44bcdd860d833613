package cmd

import (
	"github.com/spf13/cobra"
	"video-library/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "video-library",
		Short:         "Video library with subtitle generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(worker(config))
	rootCmd.AddCommand(migrate(config))
	rootCmd.AddCommand(token(config))
	rootCmd.AddCommand(videos(config))
	return rootCmd
}
