package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"paperTrader/internal/ports"
)

// StdLogger writes plain "[LEVEL] msg | error: e | k=v" lines through the
// standard log package. It is the LOG_FORMAT=text logger.
type StdLogger struct {
	logger *log.Logger
	level  LogLevel
}

// LogLevel defines the logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string level to LogLevel.
func ParseLevel(levelStr string) LogLevel {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// NewStdLogger logs to os.Stderr.
func NewStdLogger(level LogLevel) *StdLogger {
	return NewStdLoggerTo(os.Stderr, level)
}

// NewStdLoggerTo creates a standard logger writing to w.
func NewStdLoggerTo(w io.Writer, level LogLevel) *StdLogger {
	return &StdLogger{
		logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		level:  level,
	}
}

func (l *StdLogger) log(ctx context.Context, level LogLevel, msg string, err error, fields ...map[string]interface{}) {
	if level < l.level {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", level, msg)
	if err != nil {
		fmt.Fprintf(&sb, " | error: %v", err)
	}

	// Sorted so lines are stable across runs
	kv := ports.LogFields(ctx, fields...)
	if len(kv) > 0 {
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, kv[k])
		}
	}

	l.logger.Println(sb.String())
}

// Debug logs a message at Debug level.
func (l *StdLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelDebug, msg, nil, fields...)
}

// Info logs a message at Info level.
func (l *StdLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelInfo, msg, nil, fields...)
}

// Warn logs a message at Warning level.
func (l *StdLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelWarn, msg, nil, fields...)
}

// Error logs an error message at Error level.
func (l *StdLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.log(ctx, LevelError, msg, err, fields...)
}
