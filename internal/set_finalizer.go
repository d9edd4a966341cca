package internal

import (
	"context"
	"runtime"

	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
)

// SetFinalizerFree makes the GC call Free on a libav object that leaked
// past an explicit release.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}

// ClearFinalizer drops a finalizer once the object was released explicitly.
func ClearFinalizer[T any](obj T) {
	runtime.SetFinalizer(obj, nil)
}
