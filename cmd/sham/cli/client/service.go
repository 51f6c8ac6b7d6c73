package client

import (
	"context"
	"fmt"

	"github.com/mwantia/sham/internal/agent"
	"github.com/mwantia/sham/pkg/assets"
	"github.com/mwantia/sham/pkg/blob"
	"github.com/mwantia/sham/pkg/log"

	config "github.com/mwantia/sham/internal/config/server"
)

// openService builds an asset service on the configured stores. The returned
// func releases the database connection.
func openService(ctx context.Context) (*assets.Service, func(), error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load server configuration: %w", err)
	}

	logger := log.NewLoggerService("client", cfg.Log)

	metadata, err := agent.OpenMetadataStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	if err := metadata.Migrate(ctx); err != nil {
		metadata.Close()
		return nil, nil, err
	}

	service := assets.NewService(metadata, blob.NewStore(cfg.Assets.Dir), logger, cfg.Assets.MaxPayloadSize)
	return service, func() { metadata.Close() }, nil
}
