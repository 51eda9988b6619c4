// Package observability bridges the HTTP-edge logger to the review
// pipeline's logging port.
package observability

import (
	"context"

	"github.com/reviewloop/autorev/internal/adapter/httpx"
	"github.com/reviewloop/autorev/internal/usecase/review"
)

// ReviewLogger adapts httpx.Logger to review.Logger so the pipeline and
// the HTTP clients share one logging configuration.
type ReviewLogger struct {
	logger httpx.Logger
}

// NewReviewLogger creates the adapter.
func NewReviewLogger(logger httpx.Logger) review.Logger {
	return &ReviewLogger{logger: logger}
}

// LogWarning delegates to the underlying logger.
func (l *ReviewLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogWarning(ctx, message, fields)
}

// LogInfo delegates to the underlying logger.
func (l *ReviewLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.logger.LogInfo(ctx, message, fields)
}
