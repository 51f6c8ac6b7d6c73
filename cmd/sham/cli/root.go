package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewRootCommand(info VersionInfo) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:           "sham",
		Short:         "Sham Asset Store",
		Long:          "A small asset store that keeps uploaded payloads on disk and their names and tags in a SQL database.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(path); err != nil {
				return err
			}
			// A database url always means postgres
			if viper.GetString("metadata.postgres.url") != "" {
				viper.Set("metadata.type", "postgres")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (default is ./sham.yaml)")
	cmd.PersistentFlags().Bool("no-color", false, "Disables colored command output")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("asset-dir", "", "directory holding asset content")
	cmd.PersistentFlags().String("db-url", "", "postgres connection url (sqlite is used when empty)")
	cmd.PersistentFlags().String("address", "", "address the HTTP server listens on")

	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.no_color", cmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("assets.dir", cmd.PersistentFlags().Lookup("asset-dir"))
	viper.BindPFlag("metadata.postgres.url", cmd.PersistentFlags().Lookup("db-url"))
	viper.BindPFlag("http.address", cmd.PersistentFlags().Lookup("address"))

	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	return cmd
}
