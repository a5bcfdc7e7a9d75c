// Package logger sets up structured logging with log/slog: a JSON handler
// with service-level context, plus scan ID propagation through
// context.Context so every symbol task can be correlated to its scan.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const scanIDKey ctxKey = "scan_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	slog.SetDefault(logger)

	return logger
}

// WithScanID stores a scan ID in the context for downstream propagation.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// ScanID extracts the scan ID from context. Returns "" if not set.
func ScanID(ctx context.Context) string {
	if v, ok := ctx.Value(scanIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateScanID creates a scan ID from a tag and timestamp.
func GenerateScanID(tag string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", tag, ts.UnixNano())
}
