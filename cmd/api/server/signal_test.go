package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSignal_StopCancels(t *testing.T) {
	ctx, stop := WithSignal(context.Background())
	require.NoError(t, ctx.Err())

	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithSignal_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := WithSignal(parent)
	defer stop()

	cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
