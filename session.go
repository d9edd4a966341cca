// Package streamingrtsp connects to an RTSP stream, runs every decoded
// picture through a filter pipeline and hands the result to a FrameSink.
package streamingrtsp

import (
	"context"
	"errors"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/imageprocessor"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/source"
	"github.com/Hugo-Victorr/Streaming-RTSP/urltools"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

// Session owns at most one stream connection and the worker decoding it.
type Session struct {
	opener    source.Opener
	frameSink FrameSink
	pipeline  *imageprocessor.Pipeline
	config    Config
	toggles   *imageprocessor.Toggles
	stats     stats

	locker   xsync.Mutex
	state    State
	url      string
	geometry frame.Geometry
	cancelFn context.CancelFunc
	doneCh   chan struct{}
}

func New(
	opener source.Opener,
	frameSink FrameSink,
	pipeline *imageprocessor.Pipeline,
	cfg Config,
) *Session {
	if cfg.Allocator == nil {
		cfg.Allocator = source.HeapAllocator{}
	}
	if pipeline == nil {
		pipeline = imageprocessor.NewPipeline()
	}
	return &Session{
		opener:    opener,
		frameSink: frameSink,
		pipeline:  pipeline,
		config:    cfg,
		toggles:   imageprocessor.NewToggles(cfg.InitialToggles),
		state:     StateIdle,
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(%s)", s.URL())
}

func (s *Session) State() State {
	return xsync.DoR1(lockCtx(context.TODO()), &s.locker, func() State {
		return s.state
	})
}

// URL returns the target of the current (or the last) connection.
func (s *Session) URL() string {
	return xsync.DoR1(lockCtx(context.TODO()), &s.locker, func() string {
		return s.url
	})
}

// Geometry returns the picture geometry of the current (or the last)
// connection.
func (s *Session) Geometry() frame.Geometry {
	return xsync.DoR1(lockCtx(context.TODO()), &s.locker, func() frame.Geometry {
		return s.geometry
	})
}

// Toggles may be changed at any moment; the worker reads them once per
// frame.
func (s *Session) Toggles() *imageprocessor.Toggles {
	return s.toggles
}

func (s *Session) Stats() Stats {
	result := s.stats.Convert()
	result.FilterFailures = s.pipeline.Failures()
	return result
}

// Start connects to the stream and spawns the decode worker. It returns
// once the connection is established (or has failed); the worker
// outlives ctx, use Stop to end it.
func (s *Session) Start(
	ctx context.Context,
	url string,
) (_err error) {
	logger.Debugf(ctx, "Start: %s", url)
	defer func() { logger.Debugf(ctx, "/Start: %s: %v", url, _err) }()

	if err := urltools.ValidateRTSPURL(url); err != nil {
		reason := err.Error()
		var errURL urltools.ErrInvalidURL
		if errors.As(err, &errURL) {
			reason = errURL.Reason
		}
		err := ErrInvalidTarget{URL: url, Reason: reason}
		s.emit(ctx, Event{URL: url, State: s.State(), Err: err})
		return err
	}

	var (
		workerCtx context.Context
		doneCh    chan struct{}
		err       error
	)
	s.locker.Do(lockCtx(ctx), func() {
		workerCtx, doneCh, err = s.beginConnectLocked(ctx, url)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, Event{URL: url, State: StateConnecting})
	workerCtx = belt.WithField(workerCtx, "url", url)

	closer := astikit.NewCloser()
	res, buf, err := s.connect(ctx, workerCtx, url, closer)
	if err != nil {
		if closeErr := closer.Close(); closeErr != nil {
			logger.Errorf(ctx, "unable to release the connection resources: %v", closeErr)
		}
		err = ErrConnectionFailed{URL: url, Err: err}
		state := StateFailed
		if workerCtx.Err() != nil {
			// stopped while connecting
			state = StateStopped
		}
		s.finish(ctx, doneCh, state)
		s.emit(ctx, Event{URL: url, State: state, Err: err})
		return err
	}

	streaming := false
	s.locker.Do(lockCtx(ctx), func() {
		s.geometry = res.Geometry()
		if s.state == StateConnecting {
			s.state = StateStreaming
			streaming = true
		}
	})
	if streaming {
		s.emit(ctx, Event{URL: url, State: StateStreaming})
	}

	observability.Go(workerCtx, func(ctx context.Context) {
		s.worker(ctx, url, res, buf, closer, doneCh)
	})
	return nil
}

func (s *Session) beginConnectLocked(
	ctx context.Context,
	url string,
) (context.Context, chan struct{}, error) {
	if s.state.HasWorker() {
		return nil, nil, ErrAlreadyStreaming{URL: s.url, State: s.state}
	}
	workerCtx, cancelFn := context.WithCancel(xcontext.DetachDone(ctx))
	s.state = StateConnecting
	s.url = url
	s.geometry = frame.Geometry{}
	s.cancelFn = cancelFn
	s.doneCh = make(chan struct{})
	return workerCtx, s.doneCh, nil
}

func (s *Session) connect(
	ctx context.Context,
	workerCtx context.Context,
	url string,
	closer *astikit.Closer,
) (source.Resource, []byte, error) {
	// the caller giving up on Start aborts the connection attempt too
	openCtx, openCancelFn := context.WithCancel(workerCtx)
	defer openCancelFn()
	stop := context.AfterFunc(ctx, openCancelFn)
	defer stop()

	res, err := s.opener.Open(openCtx, url)
	if err != nil {
		return nil, nil, err
	}
	closer.AddWithError(res.Close)
	if err := openCtx.Err(); err != nil {
		return nil, nil, err
	}

	geometry := res.Geometry()
	if err := geometry.Validate(); err != nil {
		return nil, nil, err
	}

	buf, err := s.config.Allocator.Alloc(geometry.BufferSize())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to allocate the decode buffer: %w", err)
	}
	closer.Add(func() {
		s.config.Allocator.Free(buf)
	})
	logger.Debugf(ctx, "connected to %s: %s", res, geometry)
	return res, buf, nil
}

// Stop asks the worker to end and returns immediately. It does nothing if
// there is no worker.
func (s *Session) Stop(ctx context.Context) {
	logger.Debugf(ctx, "Stop")
	defer func() { logger.Debugf(ctx, "/Stop") }()
	var (
		url     string
		stopped bool
	)
	s.locker.Do(lockCtx(ctx), func() {
		switch s.state {
		case StateConnecting, StateStreaming:
		default:
			return
		}
		s.state = StateStopping
		s.cancelFn()
		url, stopped = s.url, true
	})
	if stopped {
		s.emit(ctx, Event{URL: url, State: StateStopping})
	}
}

// Wait blocks until the current worker (if any) has released everything.
func (s *Session) Wait(ctx context.Context) error {
	doneCh := xsync.DoR1(lockCtx(ctx), &s.locker, func() chan struct{} {
		return s.doneCh
	})
	if doneCh == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		return nil
	}
}

func (s *Session) worker(
	ctx context.Context,
	url string,
	res source.Resource,
	buf []byte,
	closer *astikit.Closer,
	doneCh chan struct{},
) {
	logger.Debugf(ctx, "worker")
	var err error
	defer func() { logger.Debugf(ctx, "/worker: %v", err) }()

	err = s.decodeLoop(ctx, res, buf)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		s.locker.Do(lockCtx(ctx), func() {
			s.state = StateStopping
		})
	}

	if closeErr := closer.Close(); closeErr != nil {
		logger.Errorf(ctx, "unable to release %s: %v", res, closeErr)
	}
	s.finish(ctx, doneCh, StateStopped)
	s.emit(ctx, Event{URL: url, State: StateStopped, Err: err})
}

func (s *Session) finish(
	ctx context.Context,
	doneCh chan struct{},
	state State,
) {
	s.locker.Do(lockCtx(ctx), func() {
		s.state = state
		s.cancelFn()
		close(doneCh)
	})
}

func (s *Session) emit(ctx context.Context, ev Event) {
	logger.Debugf(ctx, "event: %s", ev)
	if s.config.OnEvent != nil {
		s.config.OnEvent(ctx, ev)
	}
}

// lockCtx lets a cancelled caller still take the lock.
func lockCtx(ctx context.Context) context.Context {
	return xsync.WithNoLogging(xcontext.DetachDone(ctx), true)
}
