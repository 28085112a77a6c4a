package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(tracing bool) (*LoggerClient, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &LoggerClient{Zap: zap.New(core), tracingEnabled: tracing}, logs
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(Debug))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(Info))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(Warning))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(Error))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLoggerClient_FieldsAndError(t *testing.T) {
	l, logs := newObserved(false)

	l.Error("connect failed", errors.New("boom"), map[string]interface{}{"tab_id": "t1"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connect failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "t1", fields["tab_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestLoggerClient_TraceFields(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	t.Run("enabled", func(t *testing.T) {
		l, logs := newObserved(true)
		l.InfoWithContext(ctx, "query executed", nil)
		fields := logs.All()[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	})

	t.Run("disabled", func(t *testing.T) {
		l, logs := newObserved(false)
		l.InfoWithContext(ctx, "query executed", nil)
		_, ok := logs.All()[0].ContextMap()["trace_id"]
		assert.False(t, ok)
	})

	t.Run("no span in context", func(t *testing.T) {
		l, logs := newObserved(true)
		l.WarnWithContext(context.Background(), "slow", nil)
		_, ok := logs.All()[0].ContextMap()["span_id"]
		assert.False(t, ok)
	})
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Debug("ignored", nil)
		l.ErrorWithContext(context.Background(), "ignored", errors.New("x"))
	})
}
