//go:build debug_trace
// +build debug_trace

package logger

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Tracef is a shorthand for Logf(ctx, logger.LevelTrace, ...).
// Per-frame messages go here, so it is compiled out by default.
func Tracef(ctx context.Context, format string, args ...any) {
	logger.Tracef(ctx, format, args...)
}
