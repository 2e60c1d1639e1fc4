package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestLogger(t *testing.T) {
	logger := Logger("DEBUG")
	require.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger = Logger("warn")
	require.False(t, logger.Core().Enabled(zap.InfoLevel))

	require.Panics(t, func() { Logger("loud") })
}

func TestShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	errA := errors.New("a")
	errB := errors.New("b")
	err := Shutdown(ctx, zap.NewNop(),
		func(ctx context.Context) error { calls++; return errA },
		func(ctx context.Context) error { calls++; return nil },
		func(ctx context.Context) error { calls++; return errB },
	)
	require.Equal(t, 3, calls)
	require.Equal(t, []error{errA, errB}, multierr.Errors(err))
}
