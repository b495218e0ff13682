package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"serverless-user-api/internal/metrics"
	"serverless-user-api/pkg/logger"
)

// Fixed payload of GET /api/
const (
	WelcomeMessage = "Welcome to NestJS Serverless API"
	APIVersion     = "1.0.0"
)

// readinessTimeout bounds all dependency pings of one readiness check.
const readinessTimeout = 2 * time.Second

// Dependency is something the readiness check pings.
type Dependency struct {
	Name  string
	Ping  func(ctx context.Context) error
	Gauge prometheus.Gauge // optional *_up gauge
}

// WelcomeResponse is the body of GET /api/
type WelcomeResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse is the body of GET /api/health/ready
type ReadinessResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// AppHandler serves the service-level endpoints.
type AppHandler struct {
	deps []Dependency
	log  *zap.Logger
	now  func() time.Time
}

// NewAppHandler creates an AppHandler that checks deps on readiness.
func NewAppHandler(log *zap.Logger, deps ...Dependency) *AppHandler {
	return &AppHandler{deps: deps, log: log, now: time.Now}
}

func (h *AppHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

// Welcome handles GET /api/
func (h *AppHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, WelcomeResponse{
		Message: WelcomeMessage,
		Version: APIVersion,
	})
}

// Health handles GET /api/health. It never touches dependencies.
func (h *AppHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.timestamp(),
	})
}

// Ready handles GET /api/health/ready
func (h *AppHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:       "ok",
		Timestamp:    h.timestamp(),
		Dependencies: make(map[string]string, len(h.deps)),
	}

	for _, dep := range h.deps {
		start := time.Now()
		err := dep.Ping(ctx)
		metrics.DependencyCheckDuration.WithLabelValues(dep.Name).Observe(time.Since(start).Seconds())
		if dep.Gauge != nil {
			metrics.SetUp(dep.Gauge, err == nil)
		}

		if err != nil {
			logger.WithContext(c.Request.Context(), h.log).Warn("dependency check failed", zap.String("dep", dep.Name), zap.Error(err))
			resp.Dependencies[dep.Name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[dep.Name] = "up"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
