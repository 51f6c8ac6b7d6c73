package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/sham/pkg/assets"
	"github.com/mwantia/sham/pkg/log"
)

// Server exposes the asset service over HTTP.
type Server struct {
	service *assets.Service
	log     log.LoggerService
	engine  *gin.Engine
	http    *http.Server
}

func NewServer(service *assets.Service, logger log.LoggerService, address string) *Server {
	s := &Server{
		service: service,
		log:     logger,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests)
	// Multipart bodies beyond this spill to disk; the payload limit is checked by the service
	s.engine.MaxMultipartMemory = service.MaxPayloadSize() + 1<<20
	s.routes()

	s.http = &http.Server{
		Addr:              address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/assets", s.listAssets)
	s.engine.POST("/assets", s.createAsset)
	s.engine.GET("/assets/:id", s.getAsset)
	s.engine.DELETE("/assets/:id", s.deleteAsset)

	s.engine.GET("/assets/:id/tags", s.getAssetTags)
	s.engine.POST("/assets/:id/tags", s.attachTag)
	s.engine.DELETE("/assets/:id/tags/:tag_id", s.detachTag)

	s.engine.GET("/tags", s.listTags)
	s.engine.POST("/tags", s.createTag)
	s.engine.GET("/asset_tags", s.listAssetTags)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Serve listens on the configured address until Shutdown is called.
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}

	s.log.Info("Listening on '%s'", listener.Addr())
	if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.log.Debug("%s %s %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}
