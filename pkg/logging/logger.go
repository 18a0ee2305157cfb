package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

// LogLevel constants represent the various log levels
const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// LevelEnvVar selects the minimum log level
const LevelEnvVar = "NETCMDB_LOG_LEVEL"

// FormatEnvVar selects TEXT or JSON output
const FormatEnvVar = "NETCMDB_LOG_FORMAT"

var levelNames = [...]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// slogLevels maps each LogLevel onto the handler level. slog has no trace
// level so TRACE shares DEBUG.
var slogLevels = [...]slog.Level{
	TRACE: slog.LevelDebug,
	DEBUG: slog.LevelDebug,
	INFO:  slog.LevelInfo,
	WARN:  slog.LevelWarn,
	ERROR: slog.LevelError,
}

func (l LogLevel) String() string {
	if l < TRACE || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l LogLevel) slogLevel() slog.Level {
	if l < TRACE || l > ERROR {
		return slog.LevelInfo
	}
	return slogLevels[l]
}

// ParseLevel converts a level name to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	name := strings.ToUpper(strings.TrimSpace(s))
	for level, candidate := range levelNames {
		if candidate == name {
			return LogLevel(level)
		}
	}
	return INFO
}

// Logger provides structured logging with context
type Logger struct {
	component  string
	level      LogLevel
	slogLogger *SlogLogger
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{
		component:  component,
		level:      ParseLevel(os.Getenv(LevelEnvVar)),
		slogLogger: NewSlogLogger(component),
	}
}

// Component returns the component name the logger was created for
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.slogLogger.log(level.slogLevel(), fmt.Sprintf(format, args...))
}

// Trace logs a trace-level message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(TRACE, format, args...)
}

// Debug logs a debug-level message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(DEBUG, format, args...)
}

// Info logs an info-level message
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(INFO, format, args...)
}

// Warn logs a warning-level message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(WARN, format, args...)
}

// Error logs an error-level message
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(ERROR, format, args...)
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= DEBUG
}

// Operation logs an operation with structured data
func (l *Logger) Operation(ctx context.Context, operation string, details map[string]interface{}) {
	if l.level > DEBUG {
		return
	}
	l.slogLogger.Operation(ctx, operation, details)
}

// Success logs a successful operation
func (l *Logger) Success(ctx context.Context, operation string, details ...interface{}) {
	if l.level > INFO {
		return
	}
	l.slogLogger.Success(ctx, operation, details...)
}

// Failure logs a failed operation
func (l *Logger) Failure(ctx context.Context, operation string, err error) {
	l.slogLogger.Failure(ctx, operation, err)
}
