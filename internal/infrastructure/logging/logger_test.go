package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{Level: "debug", Env: "production", AppID: "eclass"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(&Config{Level: "verbose", Env: "development"})
	assert.Error(t, err)
}

func TestExtractLoggerFromContext(t *testing.T) {
	assert.NotNil(t, ExtractLoggerFromContext(context.Background()), "falls back to a nop logger")

	logger := zap.NewExample()
	ctx := SetLoggerInContext(context.Background(), logger)
	assert.Same(t, logger, ExtractLoggerFromContext(ctx))

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	detached := DetachedContext(cctx)
	assert.NoError(t, detached.Err())
	assert.Same(t, logger, ExtractLoggerFromContext(detached))
}
