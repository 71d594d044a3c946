package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	pb "github.com/godilite/salesrace/api/v1"
	"github.com/godilite/salesrace/internal/config"
	handler "github.com/godilite/salesrace/internal/grpc"
	"github.com/godilite/salesrace/internal/keyframe"
	"github.com/godilite/salesrace/internal/rest"
	"github.com/godilite/salesrace/internal/service"
	"github.com/godilite/salesrace/pkg/cache"
	grpcsrv "github.com/godilite/salesrace/pkg/grpc/server"
)

const (
	shutdownTimeout = 10 * time.Second
	maxMessageSize  = 64 << 20
)

type App struct {
	logger       *zap.Logger
	cache        cache.Cacher
	grpcHandlers *handler.GRPCHandlers
	grpcServer   *grpcsrv.Server
	httpHandler  *rest.Handler
	httpServer   *rest.Server
}

// newCache connects to Redis when an address is configured and falls back to
// an in-process cache otherwise.
func newCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cacher, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemory(), nil
	}
	c, err := cache.New(ctx,
		cache.WithAddress(cfg.RedisAddr),
		cache.WithPassword(cfg.RedisPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}
	logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	return c, nil
}

// NewKeyframeService builds the service the transports share. Callers may
// only name ledgers under DATA_ROOT, besides LEDGER_SOURCE itself.
func NewKeyframeService(cfg *config.Config, logger *zap.Logger) (*service.KeyframeService, error) {
	categoryCol, err := cfg.CategoryIndex()
	if err != nil {
		return nil, err
	}
	valueCol, err := cfg.ValueIndex()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	resolver := service.NewResolver(
		service.WithDriver(cfg.DBDriver),
		service.WithSheet(cfg.Sheet),
		service.WithRoot(cfg.DataRoot),
		service.WithAllowed(cfg.LedgerSource),
		service.WithResolverLogger(logger),
	)
	return service.NewKeyframeService(resolver, logger,
		service.WithLocation(loc),
		service.WithPadding(cfg.TreeMapPadding),
		service.WithAggregatorOptions(
			keyframe.WithCategoryColumn(categoryCol),
			keyframe.WithValueColumn(valueCol),
		),
	), nil
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	keyframes, err := NewKeyframeService(cfg, logger)
	if err != nil {
		return nil, err
	}

	cacheClient, err := newCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{logger: logger, cache: cacheClient}

	a.grpcHandlers = handler.NewGRPCHandlers(keyframes, cacheClient, logger, cfg.CacheTTL,
		handler.WithDefaultSource(cfg.LedgerSource),
		handler.WithTreeMapSize(cfg.TreeMapWidth, cfg.TreeMapHeight),
	)

	a.grpcServer, err = grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
		grpcsrv.WithMaxMessageSize(maxMessageSize, maxMessageSize),
	)
	if err != nil {
		_ = cacheClient.Close()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	pb.RegisterKeyframeServer(a.grpcServer, a.grpcHandlers)

	if cfg.HTTPPort > 0 {
		a.httpHandler = rest.NewHandler(keyframes, cacheClient, logger, cfg.CacheTTL,
			rest.WithDefaultSource(cfg.LedgerSource),
			rest.WithTreeMapSize(cfg.TreeMapWidth, cfg.TreeMapHeight),
		)
		a.httpServer, err = rest.New(a.httpHandler,
			rest.WithPort(cfg.HTTPPort),
			rest.WithLogger(logger),
			rest.WithReleaseMode(cfg.AppEnv == "production"),
		)
		if err != nil {
			_ = a.grpcServer.Shutdown(ctx)
			_ = cacheClient.Close()
			return nil, fmt.Errorf("failed to create HTTP server: %w", err)
		}
	} else {
		logger.Info("HTTP_PORT is 0, HTTP API disabled")
	}

	return a, nil
}

// Start starts every transport and returns immediately.
func (a *App) Start() {
	a.logger.Info("application starting")
	a.grpcServer.Start()
	if a.httpServer != nil {
		a.httpServer.Start()
	}
}

// Shutdown stops the transports, waits for pending cache writes and closes
// the cache.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("application shutting down")
	a.grpcServer.Drain()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		a.httpHandler.Wait()
	}
	if err := a.grpcServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
	}
	a.grpcHandlers.Wait()

	if err := a.cache.Close(); err != nil {
		a.logger.Error("cache shutdown error", zap.Error(err))
	}
	return errors.Join(errs...)
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.Shutdown(ctx)
	if err == nil {
		a.logger.Info("graceful shutdown completed successfully")
	}
	_ = a.logger.Sync()
	return err
}
