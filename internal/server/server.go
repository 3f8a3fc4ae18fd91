package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appservice "github.com/bravo68web/gitolfs/internal/application/service"
	"github.com/bravo68web/gitolfs/internal/config"
	domainservice "github.com/bravo68web/gitolfs/internal/domain/service"
	"github.com/bravo68web/gitolfs/internal/infrastructure/access"
	"github.com/bravo68web/gitolfs/internal/infrastructure/storage"
	"github.com/bravo68web/gitolfs/internal/infrastructure/tokens"
	"github.com/bravo68web/gitolfs/internal/transport/http/handler"
	"github.com/bravo68web/gitolfs/internal/transport/http/middleware"
	"github.com/bravo68web/gitolfs/internal/transport/http/router"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// Server hosts the LFS HTTP endpoints
type Server struct {
	engine *gin.Engine
	cfg    *config.Config
	tokens domainservice.TokenService
	log    *logger.Logger
}

// New builds a server and its dependency graph from an immutable config
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	content, err := storage.NewFactory(&cfg.Storage).Create(ctx)
	if err != nil {
		return nil, err
	}

	tokenStore, err := tokens.NewStore(&cfg.Tokens)
	if err != nil {
		return nil, err
	}

	oracle := access.NewGitoliteOracle(cfg.Gitolite.BinDir)
	batchService := appservice.NewBatchService(content)

	engine := gin.New()
	router.Register(engine, router.Handlers{
		Auth:     middleware.NewAuthMiddleware(tokenStore),
		Batch:    handler.NewBatchHandler(cfg, oracle, batchService),
		Transfer: handler.NewTransferHandler(cfg, oracle, content),
		Health:   handler.NewHealthHandler(),
	})

	return &Server{
		engine: engine,
		cfg:    cfg,
		tokens: tokenStore,
		log:    logger.Get().WithFields(logger.Component("server")),
	}, nil
}

// Engine exposes the gin engine, mainly for tests
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Tokens exposes the token store for maintenance commands
func (s *Server) Tokens() domainservice.TokenService {
	return s.tokens
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ServerAddress(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening",
			logger.String("address", srv.Addr),
			logger.String("storage", s.cfg.Storage.Type),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
