package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger defines the structured logging methods used across the application.
type Logger interface {
	WithComponent(componentName string) *logrus.Entry
	WithOperation(operationName string) *logrus.Entry
	WithRequestID(requestID string) *logrus.Entry
	WithOwner(ownerID string) *logrus.Entry
	WithProduct(productID string) *logrus.Entry
	WithError(err error) *logrus.Entry
	WithFields(fields map[string]interface{}) *logrus.Entry

	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})

	LogStartup(serviceName string, version string, port int)
	LogShutdown(serviceName string, reason string)
	LogCacheOperation(operation string, key string, hit bool, durationMs int64)
	LogDatabaseOperation(operation string, table string, durationMs int64, rowsAffected int64)
	LogAnalysisEvent(kind string, productID string, durationMs int64, fields map[string]interface{})

	Logrus() *logrus.Logger
}

// StandardLogger is the logrus-backed implementation of Logger.
type StandardLogger struct {
	logger *logrus.Logger
}

// NewStandardLogger creates a logger configured from the log level and
// environment. Production output is JSON; development output is text.
func NewStandardLogger(logLevel string, environment string) *StandardLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(ParseLevel(logLevel))

	if environment == "development" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	}

	return &StandardLogger{logger: logger}
}

// ParseLevel converts a string level to logrus.Level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logrus returns the underlying *logrus.Logger for collaborators that take it
// directly.
func (l *StandardLogger) Logrus() *logrus.Logger {
	return l.logger
}

// WithComponent adds component context.
func (l *StandardLogger) WithComponent(componentName string) *logrus.Entry {
	return l.logger.WithField("component", componentName)
}

// WithOperation adds operation context.
func (l *StandardLogger) WithOperation(operationName string) *logrus.Entry {
	return l.logger.WithField("operation", operationName)
}

// WithRequestID adds request ID context.
func (l *StandardLogger) WithRequestID(requestID string) *logrus.Entry {
	return l.logger.WithField("request_id", requestID)
}

// WithOwner adds owner context.
func (l *StandardLogger) WithOwner(ownerID string) *logrus.Entry {
	return l.logger.WithField("owner_id", ownerID)
}

// WithProduct adds product context.
func (l *StandardLogger) WithProduct(productID string) *logrus.Entry {
	return l.logger.WithField("product_id", productID)
}

// WithError adds error context.
func (l *StandardLogger) WithError(err error) *logrus.Entry {
	return l.logger.WithError(err)
}

// WithFields adds multiple fields to the log context.
func (l *StandardLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(logrus.Fields(fields))
}

// Info logs an info-level message.
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Infof(msg, args...)
	} else {
		l.logger.Info(msg)
	}
}

// Warn logs a warning-level message.
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Warnf(msg, args...)
	} else {
		l.logger.Warn(msg)
	}
}

// Error logs an error-level message.
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Errorf(msg, args...)
	} else {
		l.logger.Error(msg)
	}
}

// Debug logs a debug-level message.
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	if len(args) > 0 {
		l.logger.Debugf(msg, args...)
	} else {
		l.logger.Debug(msg)
	}
}

// LogStartup logs application startup information.
func (l *StandardLogger) LogStartup(serviceName string, version string, port int) {
	l.logger.WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
		"port":    port,
		"event":   "startup",
	}).Info("Service starting")
}

// LogShutdown logs application shutdown information.
func (l *StandardLogger) LogShutdown(serviceName string, reason string) {
	l.logger.WithFields(logrus.Fields{
		"service": serviceName,
		"reason":  reason,
		"event":   "shutdown",
	}).Info("Service shutting down")
}

// LogCacheOperation logs cache operations in a standardized format.
func (l *StandardLogger) LogCacheOperation(operation string, key string, hit bool, durationMs int64) {
	l.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"hit":         hit,
		"duration_ms": durationMs,
		"event":       "cache_operation",
	}).Debug("Cache operation")
}

// LogDatabaseOperation logs database operations in a standardized format.
func (l *StandardLogger) LogDatabaseOperation(operation string, table string, durationMs int64, rowsAffected int64) {
	l.logger.WithFields(logrus.Fields{
		"operation":     operation,
		"table":         table,
		"duration_ms":   durationMs,
		"rows_affected": rowsAffected,
		"event":         "database_operation",
	}).Debug("Database operation")
}

// LogAnalysisEvent logs one completed engine operation in a standardized
// format.
func (l *StandardLogger) LogAnalysisEvent(kind string, productID string, durationMs int64, fields map[string]interface{}) {
	entry := l.logger.WithFields(logrus.Fields{
		"kind":        kind,
		"product_id":  productID,
		"duration_ms": durationMs,
		"event":       "analysis",
	})
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	entry.Info("Analysis completed")
}
