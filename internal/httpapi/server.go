// Package httpapi provides the HTTP API for compactd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/compactd/internal/block"
	"github.com/fyrsmithlabs/compactd/internal/compression"
	"github.com/fyrsmithlabs/compactd/internal/tokens"
	"github.com/fyrsmithlabs/compactd/internal/window"
)

// Server exposes the window operations over HTTP.
type Server struct {
	echo            *echo.Echo
	window          *window.Service
	store           block.Store
	estimator       tokens.Estimator
	defaultStrategy compression.Strategy
	logger          *zap.Logger
	config          *Config
}

// Config holds the listener settings.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(win *window.Service, store block.Store, estimator tokens.Estimator, defaultStrategy compression.Strategy, logger *zap.Logger, cfg *Config) (*Server, error) {
	if win == nil {
		return nil, fmt.Errorf("window service is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8750}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:            e,
		window:          win,
		store:           store,
		estimator:       estimator,
		defaultStrategy: defaultStrategy,
		logger:          logger,
		config:          cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/window", s.handleWindow)
	v1.POST("/blocks", s.handleCreateBlock)
	v1.GET("/blocks/:id", s.handleGetBlock)
	v1.DELETE("/blocks/:id", s.handleDeleteBlock)
	v1.POST("/blocks/:id/compress", s.handleCompress)
	v1.POST("/blocks/merge", s.handleMerge)
}

// Start runs the listener until the server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, used by the daemon for shutdown
// and by tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleWindow(c echo.Context) error {
	usage, err := s.window.Usage(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"zones": usage})
}

// CreateBlockRequest is the body of POST /api/v1/blocks.
type CreateBlockRequest struct {
	Content string `json:"content"`
	Zone    string `json:"zone"`
	Type    string `json:"type,omitempty"`
}

func (s *Server) handleCreateBlock(c echo.Context) error {
	var req CreateBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	zone := block.Zone(req.Zone)
	if !zone.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid zone %q", req.Zone))
	}

	b := &block.Block{
		Content:    req.Content,
		Zone:       zone,
		Type:       req.Type,
		TokenCount: s.estimator.Estimate(req.Content),
	}
	id, err := s.store.Insert(c.Request().Context(), b)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	b.ID = id
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) handleGetBlock(c echo.Context) error {
	b, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, block.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "block not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBlock(c echo.Context) error {
	if err := s.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, block.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "block not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// CompressRequest is the body of POST /api/v1/blocks/:id/compress.
type CompressRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

func (s *Server) handleCompress(c echo.Context) error {
	var req CompressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	strategy := s.resolveStrategy(req.Strategy)

	outcome, err := s.window.CompressSingle(c.Request().Context(), c.Param("id"), strategy)
	if err != nil {
		return s.compressionError(c, outcome, err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// MergeRequest is the body of POST /api/v1/blocks/merge.
type MergeRequest struct {
	BlockIDs   []string `json:"block_ids"`
	Strategy   string   `json:"strategy,omitempty"`
	TargetZone string   `json:"target_zone"`
	TargetType string   `json:"target_type,omitempty"`
}

// MergeResponse is the body of a successful merge.
type MergeResponse struct {
	NewBlockID string               `json:"new_block_id"`
	Outcome    *compression.Outcome `json:"outcome"`
}

func (s *Server) handleMerge(c echo.Context) error {
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	strategy := s.resolveStrategy(req.Strategy)

	newID, outcome, err := s.window.CompressAndMerge(c.Request().Context(),
		req.BlockIDs, strategy, block.Zone(req.TargetZone), req.TargetType)
	if err != nil {
		return s.compressionError(c, outcome, err)
	}
	return c.JSON(http.StatusOK, MergeResponse{NewBlockID: newID, Outcome: outcome})
}

func (s *Server) resolveStrategy(raw string) compression.Strategy {
	if raw == "" {
		return s.defaultStrategy
	}
	return compression.Strategy(raw)
}

// compressionError maps engine errors onto HTTP statuses. Business
// rejections return 422 with the outcome so callers see the computed
// numbers.
func (s *Server) compressionError(c echo.Context, outcome *compression.Outcome, err error) error {
	switch {
	case errors.Is(err, block.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, window.ErrNoBlocks),
		errors.Is(err, block.ErrInvalidZone),
		errors.Is(err, compression.ErrEmptyContent),
		errors.Is(err, compression.ErrContentTooSmall),
		errors.Is(err, compression.ErrUnknownStrategy):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, compression.ErrBackendTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, compression.ErrBackendFailure),
		errors.Is(err, compression.ErrMalformedResponse),
		errors.Is(err, compression.ErrOutputTooLarge):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, compression.ErrRatioBelowFloor),
		errors.Is(err, compression.ErrQualityBelowFloor):
		return c.JSON(http.StatusUnprocessableEntity, outcome)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
