package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLoggerIsUsableWithoutInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("hello", UserID("u1"))
		Warn("warn")
	})
}

func TestBuild_Levels(t *testing.T) {
	l, err := Build(&Config{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestFromContext_AddsRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := Log
	Log = zap.New(core)
	defer func() { Log = prev }()

	ctx := WithRequestID(context.Background(), "req-42")
	FromContext(ctx).Info("handled")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
}
