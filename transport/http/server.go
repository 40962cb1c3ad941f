package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/slighter12/rootstock-mcp-go/config"
	"github.com/slighter12/rootstock-mcp-go/logger"
	"github.com/slighter12/rootstock-mcp-go/transport/shared"
)

const (
	sessionTimeout  = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	dispatcher     shared.ToolDispatcher
	sessionManager *SessionManager
	config         *config.Config
	echo           *echo.Echo
}

func NewServer(cfg *config.Config, dispatcher shared.ToolDispatcher) *Server {
	s := &Server{
		dispatcher:     dispatcher,
		sessionManager: NewSessionManager(),
		config:         cfg,
		echo:           echo.New(),
	}
	s.setupEcho()
	return s
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.startCleanupGoroutine(ctx)

	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	logger.Info("Streamable HTTP server starting to listen", "address", addr, "metrics", s.config.Metrics.Enabled)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) setupEcho() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, headerSessionID, headerProtocolVersion},
		ExposeHeaders: []string{headerSessionID},
	}))
	RegisterRoutes(s.echo, s)
}

func (s *Server) startCleanupGoroutine(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sessionManager.CleanupSessions(sessionTimeout); removed > 0 {
				logger.Debug("Expired MCP sessions removed", "count", removed)
			}
		}
	}
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) GetSessionManager() *SessionManager {
	return s.sessionManager
}
