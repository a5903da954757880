// Package ports defines the interfaces framegrab's core consumes: the codec
// engine (container + decoder), the image exporter and its sinks, and the
// ambient logger and filesystem.
package ports

import "strings"

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is used for per-packet and per-frame component logs.
	LevelDebug LogLevel = iota
	// LevelInfo is used for request-level progress.
	LevelInfo
	// LevelWarn is used for recoverable problems, e.g. an approximate seek.
	LevelWarn
	// LevelError is used for terminal request failures.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel, defaulting to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts logging operations with multi-language support.
// The msg parameter is a message key that adapters may translate before
// applying the format arguments.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a new Logger that tags messages with the component name.
	WithComponent(component string) Logger
}
