package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"serverless-user-api/cmd/api/di"
	"serverless-user-api/cmd/api/server"
	"serverless-user-api/internal/adapter/gin/router"
	"serverless-user-api/internal/config"
	"serverless-user-api/pkg/logger"
	"serverless-user-api/pkg/tracing"
)

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container

	shutdownTracing tracing.ShutdownFunc
}

type options struct {
	configPath string
	cfg        *config.Config
}

// Option customizes New.
type Option func(*options)

// WithConfigPath reads app.env from dir instead of CONFIG_PATH.
func WithConfigPath(dir string) Option {
	return func(o *options) { o.configPath = dir }
}

// WithConfig skips loading and uses cfg as is.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// New creates a new application instance. Configuration is resolved first,
// so a production deployment with missing database settings fails here
// before any connection is attempted.
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := options{configPath: getConfigPath()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		cfg, err = config.LoadConfig(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Initialize logger
	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &App{Config: cfg, Logger: l}

	if cfg.Tracing.Enabled {
		a.shutdownTracing, err = tracing.Init(ctx, tracing.Config{
			ServiceName:    cfg.Logger.ServiceName,
			ServiceVersion: cfg.Logger.ServiceVersion,
			Environment:    cfg.Env,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SamplerRatio:   cfg.Tracing.SamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	// Create DI container
	container, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		_ = a.stopTracing(context.Background())
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	a.Container = container
	a.Server = server.New(cfg, l, container.Router)

	l.Info("application initialized",
		zap.String("service", cfg.Logger.ServiceName),
		zap.String("version", cfg.Logger.ServiceVersion),
		zap.String("environment", cfg.Env),
		zap.String("db_dialect", cfg.DB.Dialect),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	return a, nil
}

// Handler returns the fully configured router.
func (a *App) Handler() *gin.Engine {
	return a.Container.Router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error("panic recovered in application",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		// Add panic recovery for server goroutine
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("server panic: %v", r)
			}
		}()

		errChan <- a.Server.Start(ctx)
	}()

	a.Logger.Info("application is running",
		zap.String("url", fmt.Sprintf("http://localhost:%s%s", a.Config.App.Port, router.Prefix)),
	)

	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down application...")
		return a.shutdown()
	case err := <-errChan:
		if err == nil {
			err = errors.New("server stopped unexpectedly")
		}
		return errors.Join(err, a.shutdown())
	}
}

// shutdown gracefully shuts down the application
func (a *App) shutdown() error {
	// Create shutdown context with configurable timeout
	timeout := time.Duration(a.Config.App.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("starting graceful shutdown",
		zap.Int("timeout_seconds", a.Config.App.ShutdownTimeoutSeconds),
	)

	var errs []error

	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("failed to shutdown server", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info("application shutdown complete")
	if err := logger.Sync(a.Logger); err != nil {
		errs = append(errs, fmt.Errorf("logger sync: %w", err))
	}

	return errors.Join(errs...)
}

// Close releases connections and flushes spans. The HTTP server is not touched.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.Container != nil {
		if err := a.Container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
			errs = append(errs, fmt.Errorf("container close: %w", err))
		}
	}
	if err := a.stopTracing(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (a *App) stopTracing(ctx context.Context) error {
	if a.shutdownTracing == nil {
		return nil
	}
	if err := a.shutdownTracing(ctx); err != nil {
		a.Logger.Error("failed to shutdown tracing", zap.Error(err))
		return fmt.Errorf("tracing shutdown: %w", err)
	}
	return nil
}

// initLogger initializes the application logger
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	loggerCfg := logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     cfg.Logger.OutputPath,
		EnableSampling: cfg.Logger.EnableSampling,
		ServiceName:    cfg.Logger.ServiceName,
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.Env,
	}

	return logger.NewWithConfig(loggerCfg)
}

// getConfigPath returns the configuration path
func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
