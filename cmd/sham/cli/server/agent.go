package server

import (
	"context"
	"fmt"

	"github.com/mwantia/sham/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/sham/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the Sham asset server",
		Long: `Start the Sham asset server.

The metadata schema is migrated to the latest version before the HTTP
server starts; the agent refuses to serve when that fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			if err := agent.Serve(context.Background()); err != nil {
				return err
			}

			return nil
		},
	}

	return cmd
}
