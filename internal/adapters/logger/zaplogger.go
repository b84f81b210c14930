package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"paperTrader/internal/ports"
)

// ZapLogger implements the ports.Logger interface on top of zap, emitting
// structured JSON lines.
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a production JSON logger at the given level.
func NewZapLogger(level LogLevel) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: l}, nil
}

// NewZapLoggerFromCore wraps an existing core, e.g. an observer in tests.
func NewZapLoggerFromCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{logger: zap.New(core)}
}

// Sync flushes buffered log entries.
func (l *ZapLogger) Sync() error { return l.logger.Sync() }

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zap.DebugLevel
	case LevelWarn:
		return zap.WarnLevel
	case LevelError:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func toZapFields(ctx context.Context, err error, fields []map[string]interface{}) []zap.Field {
	kv := ports.LogFields(ctx, fields...)
	out := make([]zap.Field, 0, len(kv)+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for k, v := range kv {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Debug logs a message at Debug level.
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Debug(msg, toZapFields(ctx, nil, fields)...)
}

// Info logs a message at Info level.
func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Info(msg, toZapFields(ctx, nil, fields)...)
}

// Warn logs a message at Warning level.
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.logger.Warn(msg, toZapFields(ctx, nil, fields)...)
}

// Error logs an error message at Error level.
func (l *ZapLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.logger.Error(msg, toZapFields(ctx, err, fields)...)
}
