package scaler

import (
	"context"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/helpers/closuresignaler"
	"github.com/Hugo-Victorr/Streaming-RTSP/internal"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/asticode/go-astiav"
)

type Software struct {
	*astiav.SoftwareScaleContext
	*closuresignaler.ClosureSignaler
}

var _ Scaler = (*Software)(nil)

func NewSoftware(
	ctx context.Context,
	src Resolution,
	srcPixFmt astiav.PixelFormat,
	dst Resolution,
	dstPixFmt astiav.PixelFormat,
	opts ...astiav.SoftwareScaleContextFlag,
) (*Software, error) {
	swSCtx, err := astiav.CreateSoftwareScaleContext(
		src.Width,
		src.Height,
		srcPixFmt,
		dst.Width,
		dst.Height,
		dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a software scale context (%s:%s -> %s:%s): %w", src, srcPixFmt, dst, dstPixFmt, err)
	}
	internal.SetFinalizerFree(ctx, swSCtx)
	return &Software{
		SoftwareScaleContext: swSCtx,
		ClosureSignaler:      closuresignaler.New(),
	}, nil
}

func (s *Software) String() string {
	return fmt.Sprintf(
		"SoftwareScaler(%s:%s -> %s:%s)",
		s.SourceResolution(),
		s.SoftwareScaleContext.SourcePixelFormat(),
		s.DestinationResolution(),
		s.SoftwareScaleContext.DestinationPixelFormat(),
	)
}

// Close releases the scale context right away instead of waiting for
// the finalizer.
func (s *Software) Close(ctx context.Context) error {
	logger.Tracef(ctx, "Close")
	defer logger.Tracef(ctx, "/Close")
	if !s.ClosureSignaler.Close(ctx) {
		return nil
	}
	internal.ClearFinalizer(s.SoftwareScaleContext)
	s.SoftwareScaleContext.Free()
	return nil
}

func (s *Software) ScaleFrame(
	ctx context.Context,
	src *astiav.Frame,
	dst *astiav.Frame,
) (_err error) {
	logger.Tracef(ctx, "ScaleFrame")
	defer func() { logger.Tracef(ctx, "/ScaleFrame: %v", _err) }()
	if s.IsClosed() {
		return fmt.Errorf("scaler is closed")
	}
	if err := s.SoftwareScaleContext.ScaleFrame(src, dst); err != nil {
		return fmt.Errorf("unable to scale a frame: %w", err)
	}
	return nil
}

// Matches reports whether the scaler was built for frames like src.
func (s *Software) Matches(src *astiav.Frame) bool {
	return src.Width() == s.SoftwareScaleContext.SourceWidth() &&
		src.Height() == s.SoftwareScaleContext.SourceHeight() &&
		src.PixelFormat() == s.SoftwareScaleContext.SourcePixelFormat()
}

func (s *Software) SourceResolution() Resolution {
	return Resolution{
		Width:  s.SoftwareScaleContext.SourceWidth(),
		Height: s.SoftwareScaleContext.SourceHeight(),
	}
}

func (s *Software) SourcePixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.SourcePixelFormat()
}

func (s *Software) DestinationResolution() Resolution {
	return Resolution{
		Width:  s.SoftwareScaleContext.DestinationWidth(),
		Height: s.SoftwareScaleContext.DestinationHeight(),
	}
}

func (s *Software) DestinationPixelFormat() astiav.PixelFormat {
	return s.SoftwareScaleContext.DestinationPixelFormat()
}
