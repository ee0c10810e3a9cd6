// Package web serves the translation operations over HTTP for the browser
// extension and local tools.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/hpungsan/qet/internal/ops"
)

// Options configures the HTTP listener.
type Options struct {
	Bind            string
	Port            int
	AllowedOrigins  []string
	Version         string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP surface over an Orchestrator.
type Server struct {
	orch   *ops.Orchestrator
	broker *ops.Broker
	logger zerolog.Logger
	opts   Options

	// pushes tracks background translations started by tab requests.
	pushes sync.WaitGroup

	// closing is set under mu before done is closed; no push starts after it.
	mu      sync.Mutex
	closing bool
	done    chan struct{}
}

// NewServer fills zero Options with defaults. broker must be the notifier
// the orchestrator was built with, or tab event streams never see results.
func NewServer(orch *ops.Orchestrator, broker *ops.Broker, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Bind) == "" {
		opts.Bind = "127.0.0.1"
	}
	if opts.Port <= 0 {
		opts.Port = 8787
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{orch: orch, broker: broker, logger: logger, opts: opts, done: make(chan struct{})}
}

// Handler builds the echo router with middleware and routes.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XFrameOptions:         "DENY",
		ContentTypeNosniff:    "nosniff",
		ContentSecurityPolicy: "default-src 'none'",
	}))
	if len(s.opts.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.opts.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       3600,
		}))
	}
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/messages", s.handleMessage)
	api.POST("/translate", s.handleTranslate)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)
	api.POST("/settings/reset", s.handleResetSettings)
	api.GET("/history", s.handleGetHistory)
	api.DELETE("/history", s.handleClearHistory)
	api.POST("/tabs/:tab/translate", s.handleTabTranslate)
	api.GET("/tabs/:tab/events", s.handleTabEvents)

	return e
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.orch == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Bind, s.opts.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     e,
		ReadTimeout: s.opts.ReadTimeout,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: event streams stay open.
	}

	go func() {
		<-ctx.Done()
		s.beginShutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Str("version", s.opts.Version).Msg("qet http server started")
	if s.opts.Bind == "0.0.0.0" || strings.Contains(s.opts.Bind, "::") {
		s.logger.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.beginShutdown()
		return fmt.Errorf("start server: %w", err)
	}
	s.beginShutdown()
	s.pushes.Wait()
	s.logger.Info().Msg("qet http server stopped")
	return nil
}

// beginShutdown refuses new tab pushes and ends open event streams.
func (s *Server) beginShutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	s.closing = true
	close(s.done)
}

// startPush registers a background push, or reports false once shutdown began.
func (s *Server) startPush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.pushes.Add(1)
	return true
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	}

	if status >= 500 {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
