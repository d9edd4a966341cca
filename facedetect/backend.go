package facedetect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
)

// ErrNoOpenCV is returned by the OpenCV-backed constructors when the
// binary was built without the "with_cv" tag.
var ErrNoOpenCV = errors.New("built without OpenCV support (build tag 'with_cv')")

// Input is a packed 3-channel BGR picture of the backend's input size.
// SourceWidth and SourceHeight are the size of the frame it was resized
// from.
type Input struct {
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	BGR          []byte
}

// ScaleToInput converts a size given in source frame pixels into input
// pixels (at least 1x1).
func (in Input) ScaleToInput(size image.Point) image.Point {
	if in.SourceWidth <= 0 || in.SourceHeight <= 0 {
		return size
	}
	return image.Pt(
		max(1, int(math.Round(float64(size.X)*float64(in.Width)/float64(in.SourceWidth)))),
		max(1, int(math.Round(float64(size.Y)*float64(in.Height)/float64(in.SourceHeight)))),
	)
}

// Gray returns the BT.601 luminance plane of the input.
func (in Input) Gray(dst []byte) []byte {
	size := in.Width * in.Height
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for i := range dst {
		p := in.BGR[i*3 : i*3+3]
		dst[i] = frame.Luma(p[2], p[1], p[0])
	}
	return dst
}

// Backend runs the actual inference.
type Backend interface {
	fmt.Stringer
	Infer(context.Context, Input) (Tensor, error)
	Close() error
}
