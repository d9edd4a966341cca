package streamingrtsp

import (
	"context"
	"image"
)

// FrameSink receives every processed frame. Publish must not block: the
// decode worker calls it inline.
type FrameSink interface {
	Publish(ctx context.Context, img *image.RGBA)
}

type FrameSinkFunc func(ctx context.Context, img *image.RGBA)

func (fn FrameSinkFunc) Publish(ctx context.Context, img *image.RGBA) {
	fn(ctx, img)
}
