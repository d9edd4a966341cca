package libav

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/helpers/closuresignaler"
	"github.com/Hugo-Victorr/Streaming-RTSP/internal"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/pool"
	"github.com/Hugo-Victorr/Streaming-RTSP/scaler"
	"github.com/Hugo-Victorr/Streaming-RTSP/source"
	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/dustin/go-humanize"
)

// Resource is an opened stream decoding its first video track into BGRA.
type Resource struct {
	*astiav.FormatContext
	*astiav.CodecContext
	Stream *astiav.Stream
	URL    string

	geometry     frame.Geometry
	closed       *closuresignaler.ClosureSignaler
	closer       *astikit.Closer
	packetPool   *pool.Pool[astiav.Packet]
	decodedFrame *astiav.Frame
	scaledFrame  *astiav.Frame
	scaler       *scaler.Software
}

var _ source.Resource = (*Resource)(nil)

func (r *Resource) String() string {
	return fmt.Sprintf("libav.Resource(%s)", r.URL)
}

func (r *Resource) Geometry() frame.Geometry {
	return r.geometry
}

func (r *Resource) ReadFrame(
	ctx context.Context,
	dst []byte,
) (_err error) {
	logger.Tracef(ctx, "ReadFrame")
	defer func() { logger.Tracef(ctx, "/ReadFrame: %v", _err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(dst) < r.geometry.BufferSize() {
		return fmt.Errorf("the buffer is too small: %s < %s", humanize.Bytes(uint64(len(dst))), humanize.Bytes(uint64(r.geometry.BufferSize())))
	}

	return readUntilPicture(ctx, func() (readOutcome, error) {
		return r.readStep(ctx, dst)
	})
}

type readOutcome int

const (
	readOutcomePicture = readOutcome(iota)
	readOutcomeNeedMore
	readOutcomeDrained
)

// readUntilPicture keeps consuming buffered input until a picture comes
// out; ErrNoFrame is returned only when the demuxer has nothing queued.
func readUntilPicture(
	ctx context.Context,
	step func() (readOutcome, error),
) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := step()
		if err != nil {
			return err
		}
		switch outcome {
		case readOutcomePicture:
			return nil
		case readOutcomeDrained:
			return source.ErrNoFrame
		}
	}
}

func (r *Resource) readStep(
	ctx context.Context,
	dst []byte,
) (readOutcome, error) {
	// a packet may carry more than one picture
	ok, err := r.receiveFrame(ctx, dst)
	switch {
	case err != nil:
		return 0, err
	case ok:
		return readOutcomePicture, nil
	}

	pkt := r.packetPool.Get()
	defer r.packetPool.Put(pkt)

	err = r.FormatContext.ReadFrame(pkt)
	switch {
	case err == nil:
	case errors.Is(err, astiav.ErrEagain):
		return readOutcomeDrained, nil
	case errors.Is(err, astiav.ErrEof), errors.Is(err, astiav.ErrEio):
		return 0, io.EOF
	default:
		return 0, fmt.Errorf("unable to read a packet: %w", err)
	}

	logger.Tracef(ctx, "received a packet (stream:%d, pts:%d, dts:%d), dataLen:%d", pkt.StreamIndex(), pkt.Pts(), pkt.Dts(), len(pkt.Data()))
	if pkt.StreamIndex() != r.Stream.Index() {
		return readOutcomeNeedMore, nil
	}

	if err := r.CodecContext.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return 0, fmt.Errorf("unable to send a packet to the decoder: %w", err)
	}

	ok, err = r.receiveFrame(ctx, dst)
	switch {
	case err != nil:
		return 0, err
	case ok:
		return readOutcomePicture, nil
	}
	return readOutcomeNeedMore, nil
}

func (r *Resource) receiveFrame(
	ctx context.Context,
	dst []byte,
) (bool, error) {
	err := r.CodecContext.ReceiveFrame(r.decodedFrame)
	switch {
	case err == nil:
	case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
		return false, nil
	default:
		return false, fmt.Errorf("unable to receive a frame from the decoder: %w", err)
	}
	defer r.decodedFrame.Unref()

	if r.scaler == nil || !r.scaler.Matches(r.decodedFrame) {
		if err := r.resetScaler(ctx); err != nil {
			return false, err
		}
	}

	if err := r.scaler.ScaleFrame(ctx, r.decodedFrame, r.scaledFrame); err != nil {
		return false, err
	}

	n, err := r.scaledFrame.ImageCopyToBuffer(dst, 1)
	if err != nil {
		return false, fmt.Errorf("unable to copy the picture out: %w", err)
	}
	internal.Assert(ctx, n == r.geometry.BufferSize(), n, r.geometry.BufferSize())
	return true, nil
}

func (r *Resource) resetScaler(ctx context.Context) error {
	if r.scaler != nil {
		logger.Debugf(ctx, "the decoded picture changed (%dx%d:%s), replacing %s", r.decodedFrame.Width(), r.decodedFrame.Height(), r.decodedFrame.PixelFormat(), r.scaler)
		if err := r.scaler.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close %s: %v", r.scaler, err)
		}
		r.scaler = nil
	}
	s, err := scaler.NewSoftware(
		ctx,
		scaler.Resolution{Width: r.decodedFrame.Width(), Height: r.decodedFrame.Height()},
		r.decodedFrame.PixelFormat(),
		scaler.Resolution{Width: r.geometry.Width, Height: r.geometry.Height},
		astiav.PixelFormatBgra,
		astiav.SoftwareScaleContextFlagBilinear,
	)
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "using %s", s)
	r.scaler = s
	return nil
}

// Close releases all libav objects; it is safe to call it more than once.
func (r *Resource) Close() error {
	if !r.closed.Close(context.Background()) {
		return nil
	}
	if r.scaler != nil {
		if err := r.scaler.Close(context.Background()); err != nil {
			return err
		}
		r.scaler = nil
	}
	return r.closer.Close()
}
