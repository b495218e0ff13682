package logger

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// RequestIDInterceptor is a gRPC interceptor that tags each call with a request ID
// and logs the outcome at debug level.
func RequestIDInterceptor(l *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = ContextWithRequestID(ctx, uuid.New().String())

		resp, err := handler(ctx, req)
		if err != nil {
			WithContext(ctx, l).Warn("grpc call failed", zap.String("method", info.FullMethod), zap.Error(err))
			return resp, err
		}

		WithContext(ctx, l).Debug("grpc call", zap.String("method", info.FullMethod))
		return resp, nil
	}
}
