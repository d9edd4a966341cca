// Package source defines what the stream session needs from a video
// source; source/libav implements it on top of FFmpeg.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
)

// ErrNoFrame means that the source is alive but a complete picture is
// not available yet; the caller should retry a bit later.
var ErrNoFrame = errors.New("no frame is available yet")

type Opener interface {
	// Open connects to the stream and learns its geometry.
	Open(ctx context.Context, url string) (Resource, error)
}

// Resource is an opened stream. It is used by a single goroutine.
type Resource interface {
	fmt.Stringer

	// Geometry is fixed for the lifetime of the Resource.
	Geometry() frame.Geometry

	// ReadFrame decodes the next picture into dst (Geometry().BufferSize()
	// bytes). It returns ErrNoFrame if there is nothing to show yet.
	ReadFrame(ctx context.Context, dst []byte) error

	Close() error
}

// BufferAllocator provides the decode buffer of a session.
type BufferAllocator interface {
	Alloc(size int) ([]byte, error)
	Free([]byte)
}

// HeapAllocator allocates buffers with make and leaves them to the GC.
type HeapAllocator struct{}

var _ BufferAllocator = HeapAllocator{}

func (HeapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	return make([]byte, size), nil
}

func (HeapAllocator) Free([]byte) {}
