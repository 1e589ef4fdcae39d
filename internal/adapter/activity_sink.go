package adapter

import (
	"context"

	"go.uber.org/zap"
)

// ActivitySink is the write-only audit contract. The engine records every
// state transition and loyalty mutation through it, fire-and-forget: callers
// never depend on a sink succeeding.
type ActivitySink interface {
	Record(ctx context.Context, actor, action, entityType, entityID, message string)
}

// LoggingActivitySink writes activity records to the structured log. Used in
// development and tests in place of the Kafka-backed sink.
type LoggingActivitySink struct {
	logger *zap.Logger
}

// NewLoggingActivitySink creates a log-backed activity sink.
func NewLoggingActivitySink(logger *zap.Logger) *LoggingActivitySink {
	return &LoggingActivitySink{logger: logger}
}

// Record logs the activity entry.
func (s *LoggingActivitySink) Record(ctx context.Context, actor, action, entityType, entityID, message string) {
	s.logger.Info("activity",
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("message", message),
	)
}
