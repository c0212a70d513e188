// Package server exposes the relay's HTTP surface: the provider webhook
// endpoints and the read-only history API for the UI.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kmtrend/pagerelay/internal/config"
	"github.com/kmtrend/pagerelay/internal/database"
	"github.com/kmtrend/pagerelay/internal/logger"
	"github.com/kmtrend/pagerelay/internal/relay"
)

// Server wires the gin engine and the underlying http.Server.
type Server struct {
	engine          *gin.Engine
	httpServer      *http.Server
	store           database.Store
	ingestor        *relay.Ingestor
	verifyToken     string
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New builds the server with all routes registered.
func New(cfg *config.Config, store database.Store, ingestor *relay.Ingestor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logger.Middleware(log))

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:           store,
		ingestor:        ingestor,
		verifyToken:     cfg.Webhook.VerifyToken,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
		logger:          log.With("component", "server"),
	}

	engine.GET("/", s.handleRoot)
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/webhook", s.handleVerify)
	engine.POST("/webhook", s.handleWebhook)

	api := engine.Group("/api")
	api.GET("/messages", s.handleListMessages)
	api.GET("/history/:partnerId", s.handleHistory)
	api.GET("/customers", s.handleListCustomers)

	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down HTTP server...")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("HTTP server stopped.")
		return nil
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "pagerelay API is running...")
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
