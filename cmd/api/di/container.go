package di

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"serverless-user-api/cmd/api/infrastructure"
	"serverless-user-api/internal/adapter/cache"
	"serverless-user-api/internal/adapter/db/gormdb"
	ginhandler "serverless-user-api/internal/adapter/gin/handler"
	"serverless-user-api/internal/adapter/gin/middleware"
	ginrouter "serverless-user-api/internal/adapter/gin/router"
	"serverless-user-api/internal/adapter/repository/cached"
	"serverless-user-api/internal/config"
	"serverless-user-api/internal/metrics"
	"serverless-user-api/internal/usecase/user"
	redisclient "serverless-user-api/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client // nil when REDIS_ENABLED is false
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter
	UserHandler *ginhandler.UserHandler
	AppHandler  *ginhandler.AppHandler
	Router      *gin.Engine
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	deps := []ginhandler.Dependency{{
		Name:  "database",
		Ping:  infrastructure.PingDatabase(db),
		Gauge: metrics.DBUp,
	}}

	var repo user.Repository = gormdb.NewUserRepo(db, l)

	if cfg.Redis.Enabled {
		rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		c.RedisClient = rdb

		userCache := cache.NewRedisUserCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewUserRepository(repo, userCache, l)

		if cfg.RateLimit.Enabled {
			c.RateLimiter = middleware.NewRateLimiter(
				rdb.Client,
				middleware.RateLimiterConfig{
					RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
					BurstCapacity:     cfg.RateLimit.BurstCapacity,
					Enabled:           cfg.RateLimit.Enabled,
				},
				l,
			)
		}

		deps = append(deps, ginhandler.Dependency{
			Name:  "redis",
			Ping:  rdb.Ping,
			Gauge: metrics.RedisUp,
		})
	}

	c.UserUC = user.New(repo, l)
	c.UserHandler = ginhandler.NewUserHandler(c.UserUC, l)
	c.AppHandler = ginhandler.NewAppHandler(l, deps...)

	c.Router = ginrouter.SetupRouter(ginrouter.Options{
		UserHandler:    c.UserHandler,
		AppHandler:     c.AppHandler,
		RateLimiter:    c.RateLimiter,
		Log:            l,
		ServiceName:    cfg.Logger.ServiceName,
		MetricsEnabled: cfg.Metrics.Enabled,
		TracingEnabled: cfg.Tracing.Enabled,
		Debug:          cfg.Env == config.EnvDevelopment,
	})

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
