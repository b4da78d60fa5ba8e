package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/compactd/internal/block"
	"github.com/fyrsmithlabs/compactd/internal/compression"
	"github.com/fyrsmithlabs/compactd/internal/config"
	"github.com/fyrsmithlabs/compactd/internal/httpapi"
	"github.com/fyrsmithlabs/compactd/internal/logging"
	"github.com/fyrsmithlabs/compactd/internal/telemetry"
	"github.com/fyrsmithlabs/compactd/internal/tokens"
	"github.com/fyrsmithlabs/compactd/internal/window"
)

// runServe initializes all services and blocks until the process
// receives SIGINT or SIGTERM.
func runServe(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	tel, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("telemetry init: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, tel.LoggerProvider())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var estimator tokens.Estimator
	switch cfg.Compression.Estimator {
	case "approx":
		estimator = tokens.Approx{}
	default:
		estimator = tokens.Exact{}
	}

	backends, err := buildBackends(cfg, logger)
	if err != nil {
		return err
	}

	engine, err := compression.NewService(cfg.EngineConfig(), estimator, backends)
	if err != nil {
		return fmt.Errorf("compression service: %w", err)
	}

	store := block.NewMemoryStore()

	win, err := window.NewService(store, engine, estimator, logger)
	if err != nil {
		return fmt.Errorf("window service: %w", err)
	}

	server, err := httpapi.NewServer(win, store, estimator,
		compression.Strategy(cfg.Compression.DefaultStrategy), logger,
		&httpapi.Config{Host: cfg.Server.Host, Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildBackends constructs the closed set of configured transports.
// The gateway backend is only wired when a token is configured; the
// token itself is never logged.
func buildBackends(cfg *config.Config, logger *zap.Logger) (map[compression.Strategy]compression.Backend, error) {
	engineCfg := cfg.EngineConfig()
	backends := map[compression.Strategy]compression.Backend{
		compression.StrategyLocal: compression.NewLocalBackend(engineCfg.Local),
	}

	if cfg.Backends.Gateway.Token.IsSet() {
		gateway, err := compression.NewGatewayBackend(engineCfg.Gateway)
		if err != nil {
			return nil, fmt.Errorf("gateway backend: %w", err)
		}
		backends[compression.StrategyGateway] = gateway
		logger.Info("gateway backend enabled",
			zap.String("base_url", cfg.Backends.Gateway.BaseURL),
			logging.RedactedString("token", cfg.Backends.Gateway.Token.Value()),
		)
	}

	agent, err := compression.NewAgentBackend(engineCfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("agent backend: %w", err)
	}
	backends[compression.StrategyAgent] = agent

	return backends, nil
}
