// Package lambda bridges API Gateway proxy events to the HTTP engine. The
// engine is built on the first invocation and reused by every later one in
// the same execution environment.
package lambda

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"serverless-user-api/internal/metrics"
)

// State of the cached application.
type State int

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "READY"
	}
	return "UNINITIALIZED"
}

// Proxy forwards one API Gateway event to the application.
type Proxy interface {
	ProxyWithContext(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// Initializer bootstraps the application. It is called until it succeeds once.
type Initializer func(ctx context.Context) (Proxy, error)

// GinInitializer adapts an engine builder to an Initializer.
func GinInitializer(build func(ctx context.Context) (*gin.Engine, error)) Initializer {
	return func(ctx context.Context) (Proxy, error) {
		engine, err := build(ctx)
		if err != nil {
			return nil, err
		}
		return ginadapter.New(engine), nil
	}
}

type slot struct {
	proxy Proxy
}

// Adapter is the function handler. A failed initialization leaves it
// UNINITIALIZED so the next invocation tries again.
type Adapter struct {
	init  Initializer
	log   *zap.Logger
	ready atomic.Pointer[slot]
	group singleflight.Group
}

// New creates an Adapter in the UNINITIALIZED state.
func New(init Initializer, log *zap.Logger) *Adapter {
	return &Adapter{init: init, log: log}
}

// State reports whether the application has been initialized.
func (a *Adapter) State() State {
	if a.ready.Load() != nil {
		return StateReady
	}
	return StateUninitialized
}

// Handle is passed to lambda.Start.
func (a *Adapter) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := a.log
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("aws_request_id", lc.AwsRequestID))
	}

	proxy, err := a.ensureReady(ctx, log)
	if err != nil {
		log.Error("application initialization failed", zap.Error(err))
		return events.APIGatewayProxyResponse{}, err
	}

	log.Debug("handling event", zap.String("method", req.HTTPMethod), zap.String("path", req.Path))
	return proxy.ProxyWithContext(ctx, req)
}

func (a *Adapter) ensureReady(ctx context.Context, log *zap.Logger) (Proxy, error) {
	if s := a.ready.Load(); s != nil {
		return s.proxy, nil
	}

	// Concurrent cold invocations share one bootstrap.
	v, err, _ := a.group.Do("init", func() (any, error) {
		if s := a.ready.Load(); s != nil {
			return s.proxy, nil
		}

		log.Info("initializing application")
		// Bootstrap outlives the invocation that triggered it.
		proxy, err := a.init(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		a.ready.Store(&slot{proxy: proxy})
		metrics.LambdaColdStarts.Inc()
		log.Info("application ready")
		return proxy, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Proxy), nil
}
