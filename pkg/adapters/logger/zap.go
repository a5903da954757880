package logger

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/framegrab/pkg/ports"
)

// ZapLogger writes JSON lines through zap. Messages are not translated; the
// untranslated message key is kept in the "key" field for grouping.
type ZapLogger struct {
	l *zap.Logger
}

// NewZap creates a JSON logger writing to w at the given level.
func NewZap(level ports.LogLevel, w io.Writer) *ZapLogger {
	if level == ports.LevelQuiet {
		return NewNoop()
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), zapLevel(level))
	return &ZapLogger{l: zap.New(core)}
}

// NewNoop creates a logger that discards everything; used for --quiet and tests.
func NewNoop() *ZapLogger {
	return &ZapLogger{l: zap.NewNop()}
}

// FromZap adapts an existing zap logger.
func FromZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l}
}

// Debug logs a debug message.
func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.log(zapcore.DebugLevel, msg, args)
}

// Info logs an informational message.
func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.log(zapcore.InfoLevel, msg, args)
}

// Warn logs a warning message.
func (z *ZapLogger) Warn(msg string, args ...interface{}) {
	z.log(zapcore.WarnLevel, msg, args)
}

// Error logs an error message.
func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.log(zapcore.ErrorLevel, msg, args)
}

// WithComponent returns a logger that adds a "component" field.
func (z *ZapLogger) WithComponent(component string) ports.Logger {
	return &ZapLogger{l: z.l.With(zap.String("component", component))}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.l.Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, args []interface{}) {
	if !z.l.Core().Enabled(level) {
		return
	}
	text := msg
	if len(args) > 0 {
		text = fmt.Sprintf(msg, args...)
	}
	if ce := z.l.Check(level, text); ce != nil {
		ce.Write(zap.String("key", msg))
	}
}

func zapLevel(level ports.LogLevel) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
