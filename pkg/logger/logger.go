package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithUserID adds user ID to logger context
func (l *Logger) WithUserID(userID int64) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.Int64("user_id", userID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Admission engine logging methods

// LogAdmission logs a direct admission into a role's capacity pool
func (l *Logger) LogAdmission(ctx context.Context, userID int64, role string, occupied, limit int) {
	l.Logger.InfoContext(ctx,
		"Participant Admitted",
		slog.Int64("user_id", userID),
		slog.String("role", role),
		slog.Int("occupied", occupied),
		slog.Int("limit", limit),
	)
}

// LogEnqueued logs an overflow registration landing on the waitlist
func (l *Logger) LogEnqueued(ctx context.Context, userID int64, role string, position int) {
	l.Logger.InfoContext(ctx,
		"Waitlisted",
		slog.Int64("user_id", userID),
		slog.String("role", role),
		slog.Int("position", position),
	)
}

// LogSlotFreed logs freed capacity entering the notification path
func (l *Logger) LogSlotFreed(ctx context.Context, role string, delta, notified int) {
	l.Logger.InfoContext(ctx,
		"Capacity Freed",
		slog.String("role", role),
		slog.Int("delta", delta),
		slog.Int("notified", notified),
	)
}

// LogNotificationOutcome logs the delivery outcome of an outbound send
func (l *Logger) LogNotificationOutcome(ctx context.Context, userID int64, kind, outcome string) {
	l.Logger.InfoContext(ctx,
		"Notification Outcome",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
		slog.String("outcome", outcome),
	)
}

// LogTransferResolved logs a slot transfer reaching a terminal state
func (l *Logger) LogTransferResolved(ctx context.Context, transferID, status string, originalUser, newUser int64) {
	l.Logger.InfoContext(ctx,
		"Slot Transfer Resolved",
		slog.String("transfer_id", transferID),
		slog.String("status", status),
		slog.Int64("original_user", originalUser),
		slog.Int64("new_user", newUser),
	)
}

// LogInvariantBreach logs occupancy exceeding the role limit. The caller is
// expected to run a reconciliation pass, not crash.
func (l *Logger) LogInvariantBreach(ctx context.Context, role string, occupied, limit int) {
	l.Logger.ErrorContext(ctx,
		"Capacity Invariant Breach",
		slog.String("role", role),
		slog.Int("occupied", occupied),
		slog.Int("limit", limit),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.DebugContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
