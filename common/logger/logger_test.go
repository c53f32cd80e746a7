package logger_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logger.New(logger.Config{Level: "invalid"})
	require.Error(t, err)
}

func TestNew_ValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		_, err := logger.New(logger.Config{Level: lvl, DevMode: true})
		assert.NoError(t, err, "level %s", lvl)
	}
}

func TestNew_DefaultLevelIsInfo(t *testing.T) {
	l, err := logger.New(logger.Config{})
	require.NoError(t, err)
	assert.Equal(t, "info", l.Level())
}

func TestSetLevel_SharedWithNamedChildren(t *testing.T) {
	root, err := logger.New(logger.Config{Level: "info", DevMode: true})
	require.NoError(t, err)
	child := root.Named("child")

	require.NoError(t, root.SetLevel("debug"))
	assert.Equal(t, "debug", child.Level())

	require.Error(t, child.SetLevel("loud"))
	assert.Equal(t, "debug", root.Level())
}

func TestWithContext_TraceAndRequestID(t *testing.T) {
	l := logger.NewNop()
	ctx := logger.ContextWithTraceID(context.Background(), "trace-123")
	ctx = logger.ContextWithRequestID(ctx, "req-456")

	assert.Equal(t, "trace-123", logger.TraceID(ctx))
	assert.Equal(t, "req-456", logger.RequestID(ctx))

	enh := l.WithContext(ctx)
	require.NotNil(t, enh)
	assert.NotSame(t, l, enh)
	enh.Info("test message")

	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestSync_NoPanic(t *testing.T) {
	l, err := logger.New(logger.Config{Level: "info", DevMode: true})
	require.NoError(t, err)
	l.Sync()
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")
	l, err := logger.New(logger.Config{Level: "info", File: path})
	require.NoError(t, err)

	l.Named("session").Info("session: connected")
	l.Debug("hidden")
	l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"session: connected"`)
	assert.Contains(t, string(b), `"logger":"session"`)
	assert.NotContains(t, string(b), "hidden")
}
