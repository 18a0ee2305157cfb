package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

// CorrelationIDKey is the context key for correlation IDs
const CorrelationIDKey contextKey = "correlationID"

// WithCorrelationID stores a correlation ID on the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// SlogLogger provides structured logging using slog
type SlogLogger struct {
	logger    *slog.Logger
	component string
}

// NewSlogLogger creates a new logger using slog backend
func NewSlogLogger(component string) *SlogLogger {
	return NewSlogLoggerWithWriter(component, os.Stderr)
}

// NewSlogLoggerWithWriter creates a slog-backed logger writing to w
func NewSlogLoggerWithWriter(component string, w io.Writer) *SlogLogger {
	return &SlogLogger{
		logger:    slog.New(createHandler(w)),
		component: component,
	}
}

// createHandler creates an appropriate slog handler based on environment variables.
// Logs go to stderr by default so command output on stdout stays machine readable.
func createHandler(output io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       getLogLevelSlog(),
		AddSource:   false,
		ReplaceAttr: replaceAttr,
	}

	if strings.EqualFold(os.Getenv(FormatEnvVar), "JSON") {
		return slog.NewJSONHandler(output, opts)
	}
	return slog.NewTextHandler(output, opts)
}

func getLogLevelSlog() slog.Level {
	return ParseLevel(os.Getenv(LevelEnvVar)).slogLevel()
}

// replaceAttr prints level names the same way LogLevel.String does
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok {
		a.Value = slog.StringValue(level.String())
	}
	return a
}

func (l *SlogLogger) log(level slog.Level, msg string, args ...interface{}) {
	l.logger.Log(context.Background(), level, msg, l.withComponent(args)...)
}

// Debug logs a debug-level message
func (l *SlogLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debug(msg, l.withComponent(args)...)
}

// Info logs an info-level message
func (l *SlogLogger) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, l.withComponent(args)...)
}

// Warn logs a warning-level message
func (l *SlogLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warn(msg, l.withComponent(args)...)
}

// Error logs an error-level message
func (l *SlogLogger) Error(msg string, args ...interface{}) {
	l.logger.Error(msg, l.withComponent(args)...)
}

func (l *SlogLogger) withComponent(args []interface{}) []interface{} {
	return append([]interface{}{"component", l.component}, args...)
}

// WithContext returns a logger carrying the context's correlation ID, if any
func (l *SlogLogger) WithContext(ctx context.Context) *SlogLogger {
	if ctx == nil {
		return l
	}
	if corrID, ok := ctx.Value(CorrelationIDKey).(string); ok && corrID != "" {
		return &SlogLogger{
			logger:    l.logger.With("correlation_id", corrID),
			component: l.component,
		}
	}
	return l
}

// WithFields returns a logger with additional fields
func (l *SlogLogger) WithFields(fields map[string]interface{}) *SlogLogger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &SlogLogger{
		logger:    l.logger.With(args...),
		component: l.component,
	}
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *SlogLogger) IsDebugEnabled() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

// Operation logs an operation with structured data
func (l *SlogLogger) Operation(ctx context.Context, operation string, details map[string]interface{}) {
	if !l.IsDebugEnabled() {
		return
	}

	args := []interface{}{"component", l.component, "operation", operation}
	for k, v := range details {
		args = append(args, k, v)
	}

	l.WithContext(ctx).logger.DebugContext(ctx, "Operation", args...)
}

// Success logs a successful operation
func (l *SlogLogger) Success(ctx context.Context, operation string, details ...interface{}) {
	args := []interface{}{"component", l.component, "operation", operation, "status", "success"}
	if len(details) > 0 {
		args = append(args, "details", details[0])
	}

	l.WithContext(ctx).logger.InfoContext(ctx, "Operation completed successfully", args...)
}

// Failure logs a failed operation
func (l *SlogLogger) Failure(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).logger.ErrorContext(ctx, "Operation failed",
		"component", l.component,
		"operation", operation,
		"status", "failed",
		"error", err)
}

// RecordSkipped logs a relationship record dropped during graph construction
func (l *SlogLogger) RecordSkipped(recordID string, reason string, fields []string) {
	l.logger.Warn("Skipping relationship record",
		"component", l.component,
		"record_id", recordID,
		"reason", reason,
		"fields", fields)
}

// AnalysisSummary logs the outcome of an analysis run
func (l *SlogLogger) AnalysisSummary(analysis string, nodes, edges, findings int) {
	l.logger.Info("Analysis completed",
		"component", l.component,
		"analysis", analysis,
		"nodes", nodes,
		"edges", edges,
		"findings", findings)
}
