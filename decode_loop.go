package streamingrtsp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/source"
)

// decodeLoop returns nil if it was cancelled and ErrDecode otherwise.
func (s *Session) decodeLoop(
	ctx context.Context,
	res source.Resource,
	buf []byte,
) error {
	geometry := res.Geometry()
	f := &frame.Frame{}
	pollDelay := s.config.NoFramePollMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		iterationStart := time.Now()

		err := res.ReadFrame(ctx, buf)
		switch {
		case err == nil:
			pollDelay = s.config.NoFramePollMin
		case errors.Is(err, source.ErrNoFrame):
			s.stats.NoFramePolls.Inc()
			if !sleep(ctx, pollDelay) {
				return nil
			}
			pollDelay = nextPollDelay(pollDelay, s.config.NoFramePollMin, s.config.NoFramePollMax)
			continue
		case ctx.Err() != nil:
			return nil
		default:
			return ErrDecode{Err: err}
		}
		s.stats.FramesDecoded.Inc()

		f.Reset(geometry, buf)
		toggles := s.toggles.Snapshot()
		logger.Tracef(ctx, "processing a frame: %s", toggles)
		s.pipeline.Process(ctx, f, toggles)

		img, err := f.ToRGBA(nil)
		if err != nil {
			return ErrDecode{Err: fmt.Errorf("unable to convert the frame: %w", err)}
		}
		if s.frameSink != nil {
			s.frameSink.Publish(ctx, img)
		}
		s.stats.FramesPublished.Inc()

		if !sleep(ctx, s.config.FrameInterval-time.Since(iterationStart)) {
			return nil
		}
	}
}

func nextPollDelay(cur, lo, hi time.Duration) time.Duration {
	if cur < lo {
		cur = lo
	}
	if cur <= 0 {
		cur = time.Millisecond
	}
	cur *= 2
	if hi > 0 && cur > hi {
		cur = hi
	}
	return cur
}

// sleep returns false if ctx was cancelled before d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
