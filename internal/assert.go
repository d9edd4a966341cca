// Package internal holds helpers shared by the libav-backed packages.
package internal

import (
	"context"

	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
)

func Assert(
	ctx context.Context,
	mustBeTrue bool,
	extraArgs ...any,
) {
	if mustBeTrue {
		return
	}

	logger.Panic(ctx, "assertion failed", extraArgs)
}
