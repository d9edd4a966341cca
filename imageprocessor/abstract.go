// Package imageprocessor provides the per-frame filter steps and the
// pipeline that chains them.
package imageprocessor

import (
	"context"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
)

// Step is one filter of the pipeline. A step whose toggle is off must
// leave the frame untouched.
type Step interface {
	fmt.Stringer
	Process(context.Context, *frame.Frame, ToggleSet) error
}
