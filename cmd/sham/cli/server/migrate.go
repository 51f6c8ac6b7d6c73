package server

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mwantia/sham/internal/agent"
	"github.com/mwantia/sham/pkg/log"
	"github.com/spf13/cobra"

	config "github.com/mwantia/sham/internal/config/server"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the metadata schema",
		Long: `Apply every pending schema migration to the configured metadata store.

Migrations only move forward. Running this against an up-to-date
database does nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			ctx := context.Background()
			logger := log.NewLoggerService("migrate", cfg.Log)

			metadata, err := agent.OpenMetadataStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer metadata.Close()

			migrator := metadata.Migrator()
			if err := migrator.Migrate(ctx); err != nil {
				return err
			}

			version, err := migrator.Version(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", version)
			return nil
		},
	}

	cmd.AddCommand(newMigrateStatusCommand())

	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			ctx := context.Background()
			logger := log.NewLoggerService("migrate", cfg.Log)

			metadata, err := agent.OpenMetadataStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer metadata.Close()

			status, err := metadata.Migrator().Status(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tDESCRIPTION")
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, state, s.Description)
			}
			return w.Flush()
		},
	}
}
