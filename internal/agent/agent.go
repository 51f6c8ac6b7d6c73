package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"github.com/mwantia/sham/internal/api"
	"github.com/mwantia/sham/pkg/assets"
	"github.com/mwantia/sham/pkg/blob"
	"github.com/mwantia/sham/pkg/db/store"
	"github.com/mwantia/sham/pkg/log"
	gormLogger "gorm.io/gorm/logger"

	config "github.com/mwantia/sham/internal/config/server"
)

type ShamAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	metadata *store.SQLStore
	server   *api.Server

	register func(*store.SQLStore, *blob.Store, *assets.Service) error
}

func NewAgent(cfg *config.BaseServerConfig) *ShamAgent {
	sa := &ShamAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("sham", cfg.Log),
	}
	sa.register = sa.registerServices
	return sa
}

// setupServices opens and migrates the metadata store and builds everything
// on top of it. The store is closed again when any later step fails.
func (sa *ShamAgent) setupServices(ctx context.Context) (err error) {
	metadata, err := OpenMetadataStore(ctx, sa.cfg, sa.log)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			metadata.Close()
			sa.metadata, sa.server = nil, nil
		}
	}()

	sa.log.Debug("Migrating metadata store...")
	if err := metadata.Migrate(ctx); err != nil {
		return fmt.Errorf("refusing to serve: %w", err)
	}

	blobs := blob.NewStore(sa.cfg.Assets.Dir)
	service := assets.NewService(metadata, blobs, sa.log.Named("assets"), sa.cfg.Assets.MaxPayloadSize)

	sa.metadata = metadata
	sa.server = api.NewServer(service, sa.log.Named("http"), sa.cfg.HTTP.Address)

	if err := sa.register(metadata, blobs, service); err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}
	return nil
}

func (sa *ShamAgent) registerServices(metadata *store.SQLStore, blobs *blob.Store, service *assets.Service) error {
	errs := container.Errors{}

	sa.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](sa.sc,
		container.With[log.LoggerService](),
		container.WithInstance(sa.log)))

	sa.log.Debug("Registering 'MetadataStore'...")
	errs.Add(container.Register[store.SQLStore](sa.sc,
		container.With[store.MetadataStore](),
		container.WithInstance(metadata)))

	sa.log.Debug("Registering 'BlobStore'...")
	errs.Add(container.Register[blob.Store](sa.sc,
		container.WithInstance(blobs)))

	sa.log.Debug("Registering 'AssetService'...")
	errs.Add(container.Register[assets.Service](sa.sc,
		container.WithInstance(service)))

	return errs.Errors()
}

// OpenMetadataStore connects to the metadata database described by cfg
// without touching its schema.
func OpenMetadataStore(ctx context.Context, cfg *config.BaseServerConfig, logger log.LoggerService) (*store.SQLStore, error) {
	metadata, err := store.NewSQLStore(store.Config{
		Type:        cfg.Metadata.Type,
		SQLitePath:  cfg.Metadata.SQLite.Path,
		PostgresDSN: cfg.Metadata.Postgres.DSN(),
		LogLevel:    storeLogLevel(logger),
		Logger:      log.NewGormLogger(logger.Named("db")),
	})
	if err != nil {
		return nil, err
	}

	if err := metadata.Connect(ctx); err != nil {
		metadata.Close()
		return nil, fmt.Errorf("failed to connect to %s metadata store: %w", cfg.Metadata.Type, err)
	}

	return metadata, nil
}

// SQL is traced only while debugging; otherwise slow queries and failures surface.
func storeLogLevel(logger log.LoggerService) gormLogger.LogLevel {
	if logger.Level() <= log.Debug {
		return gormLogger.Info
	}
	return gormLogger.Warn
}

func (sa *ShamAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	sa.mutex.Lock()

	if err := sa.setupServices(ctx); err != nil {
		sa.mutex.Unlock()
		return err
	}
	defer sa.metadata.Close()

	serveErr := make(chan error, 1)
	sa.wait.Add(1)
	go func() {
		defer sa.wait.Done()
		if err := sa.server.Serve(); err != nil {
			serveErr <- err
			cancel()
		}
	}()

	sa.mutex.Unlock()
	<-ctx.Done()

	timeout, err := time.ParseDuration(sa.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sa.log.Info("Shutting down...")
	if err := sa.server.Shutdown(shutdown); err != nil {
		sa.log.Warn("HTTP server did not shut down cleanly: %v", err)
	}

	if err := sa.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	sa.wait.Wait()

	select {
	case err := <-serveErr:
		return errors.Join(fmt.Errorf("http server stopped unexpectedly"), err)
	default:
		return nil
	}
}
