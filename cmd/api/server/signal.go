package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals end server mode.
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// WithSignal returns a context cancelled on the first shutdown signal.
// stop releases the signal handler and cancels the context.
func WithSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, ShutdownSignals...)
}
