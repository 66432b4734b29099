package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurescope/futuresdata/internal/config"
)

func TestNew_DefaultsToStderr(t *testing.T) {
	m, err := New(config.LoggingConfig{Level: "info", Format: "text"})
	require.NoError(t, err)
	defer m.Close()

	assert.NotNil(t, m.Logger())
	assert.NotNil(t, m.Component("storage"))
}

func TestNew_FileOutputRequiresPath(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: "file"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file path is required")
}

func TestNew_RejectsUnknownOutput(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: "stdout"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported log output")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("anything else").String())
}

func TestContextAttrs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, contextAttrs(ctx))

	ctx = NewTrace(ctx)
	ctx = WithSymbol(ctx, "GC=F")
	ctx = WithDataset(ctx, "prices")
	ctx = WithOperation(ctx, "fetch")

	attrs := contextAttrs(ctx)
	// trace_id, symbol, dataset, operation
	assert.Len(t, attrs, 4)
}

func TestNewTrace_UniquePerInvocation(t *testing.T) {
	a := NewTrace(context.Background()).Value(TraceIDKey)
	b := NewTrace(context.Background()).Value(TraceIDKey)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.NotEqual(t, a, b)
}
