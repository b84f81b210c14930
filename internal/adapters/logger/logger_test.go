package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"paperTrader/internal/ports"
)

var (
	_ ports.Logger = (*StdLogger)(nil)
	_ ports.Logger = (*ZapLogger)(nil)
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestStdLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelInfo)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "Trade executed", map[string]interface{}{"symbol": "AAPL", "cash": "8500.00"})
	l.Error(ctx, errors.New("disk full"), "Buy: storage failure")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] Trade executed | cash=8500.00 symbol=AAPL")
	assert.Contains(t, out, "[ERROR] Buy: storage failure | error: disk full")
}

func TestZapLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewZapLoggerFromCore(core)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Warn(ctx, "Buy: request rejected", map[string]interface{}{"accountID": "acc-1"})
	l.Error(ctx, errors.New("boom"), "Sell: storage failure")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Buy: request rejected", entries[0].Message)
	assert.Equal(t, "acc-1", entries[0].ContextMap()["accountID"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestNewZapLogger(t *testing.T) {
	l, err := NewZapLogger(LevelDebug)
	require.NoError(t, err)
	l.Debug(context.Background(), "ok")
	_ = l.Sync()
}

func TestStdLogger_AddsAccountFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelDebug)
	ctx := ports.WithAccountID(context.Background(), "acc-7")

	l.Info(ctx, "Trade executed", map[string]interface{}{"symbol": "MSFT"})
	l.Warn(ctx, "Holdings disagree with history")

	out := buf.String()
	assert.Contains(t, out, "[INFO] Trade executed | accountID=acc-7 symbol=MSFT")
	assert.Contains(t, out, "[WARN] Holdings disagree with history | accountID=acc-7")
}

func TestZapLogger_AddsAccountFromContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapLoggerFromCore(core)
	ctx := ports.WithAccountID(context.Background(), "acc-7")

	l.Error(ctx, errors.New("boom"), "Sell: storage failure", map[string]interface{}{"op": "Sell"})
	l.Info(ctx, "override", map[string]interface{}{"accountID": "acc-8"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "acc-7", entries[0].ContextMap()["accountID"])
	assert.Equal(t, "Sell", entries[0].ContextMap()["op"])
	assert.Equal(t, "acc-8", entries[1].ContextMap()["accountID"])
}
