package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"serverless-user-api/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	HTTP   *http.Server
	GRPC   *grpc.Server   // nil unless GRPC_ENABLED
	Health *health.Server // nil unless GRPC_ENABLED
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, router *gin.Engine) *Server {
	s := &Server{
		Config: cfg,
		Logger: l,
		HTTP:   SetupGinServer(router, httpAddress(cfg), l),
	}
	if cfg.GRPC.Enabled {
		s.GRPC, s.Health = SetupGRPC(cfg.Logger.ServiceName, l)
	}
	return s
}

// Start runs the HTTP server and, when enabled, the gRPC health server.
// It blocks until one of them stops; a clean Shutdown is not an error.
func (s *Server) Start(ctx context.Context) error {
	var g errgroup.Group

	if s.GRPC != nil {
		lc := net.ListenConfig{}
		lis, err := lc.Listen(ctx, "tcp", grpcAddress(s.Config))
		if err != nil {
			return fmt.Errorf("failed to listen: %w", err)
		}
		g.Go(func() error {
			s.Logger.Info("gRPC health server running", zap.String("address", lis.Addr().String()))
			if err := s.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				_ = s.HTTP.Close()
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		s.Logger.Info("HTTP server running", zap.String("address", s.HTTP.Addr))
		if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.GRPC != nil {
				s.GRPC.Stop()
			}
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Health != nil {
		s.Health.Shutdown()
	}

	var errs []error
	if err := s.HTTP.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if s.GRPC != nil {
		s.GRPC.GracefulStop()
	}
	return errors.Join(errs...)
}

func grpcAddress(cfg *config.Config) string {
	return ":" + cfg.GRPC.Port
}

func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.Port
}
