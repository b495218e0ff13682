package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"serverless-user-api/internal/adapter/gin/handler"
	"serverless-user-api/internal/adapter/gin/middleware"
)

// Prefix is applied to every route.
const Prefix = "/api"

// Options carries everything SetupRouter wires into the engine.
type Options struct {
	UserHandler    *handler.UserHandler
	AppHandler     *handler.AppHandler
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Log            *zap.Logger
	ServiceName    string
	MetricsEnabled bool
	TracingEnabled bool
	Debug          bool
}

// SetupRouter configures and returns a Gin router with all routes and middleware.
// The validation, CORS and prefix policy is applied unconditionally.
func SetupRouter(opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Reject JSON fields the request structs do not declare
	binding.EnableDecoderDisallowUnknownFields = true

	router := gin.New()

	router.Use(middleware.RequestID())
	if opts.TracingEnabled {
		router.Use(middleware.Trace(opts.ServiceName))
	}
	router.Use(middleware.Logger(opts.Log))
	router.Use(middleware.Recovery(opts.Log))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	if opts.MetricsEnabled {
		router.Use(middleware.Metrics())
	}

	// /api and /api/ both serve the welcome payload
	router.GET(Prefix, opts.AppHandler.Welcome)

	api := router.Group(Prefix)
	{
		api.GET("/", opts.AppHandler.Welcome)
		api.GET("/health", opts.AppHandler.Health)
		api.GET("/health/ready", opts.AppHandler.Ready)
		if opts.MetricsEnabled {
			api.GET("/metrics", gin.WrapH(promhttp.Handler()))
		}

		users := api.Group("/users", opts.RateLimiter.Middleware())
		{
			users.POST("", opts.UserHandler.CreateUser)
			users.GET("", opts.UserHandler.ListUsers)
			users.GET("/:id", opts.UserHandler.GetUser)
			users.PUT("/:id", opts.UserHandler.UpdateUser)
			users.PATCH("/:id", opts.UserHandler.UpdateUser)
			users.DELETE("/:id", opts.UserHandler.DeleteUser)
		}
	}

	return router
}
