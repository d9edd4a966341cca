package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	streamingrtsp "github.com/Hugo-Victorr/Streaming-RTSP"
	"github.com/Hugo-Victorr/Streaming-RTSP/facedetect"
	"github.com/Hugo-Victorr/Streaming-RTSP/imageprocessor"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/Hugo-Victorr/Streaming-RTSP/preview"
	"github.com/Hugo-Victorr/Streaming-RTSP/sink"
	"github.com/Hugo-Victorr/Streaming-RTSP/snapshot"
	"github.com/Hugo-Victorr/Streaming-RTSP/source/libav"
	"github.com/Hugo-Victorr/Streaming-RTSP/urltools"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/typing"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] [rtsp://URL]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	listenAddr := pflag.String("listen-addr", "localhost:8080", "an address to serve the preview and the control API at")
	frameInterval := pflag.Duration("frame-interval", streamingrtsp.DefaultConfig().FrameInterval, "the minimal time between two published frames")
	rtspTransport := pflag.String("rtsp-transport", libav.DefaultConfig().Transport, "RTSP lower transport: tcp, udp, udp_multicast or http")
	rtspCredentials := pflag.String("rtsp-credentials", "", "credentials ('user:password') to inject into the stream URL")
	streamIndex := pflag.Int("stream-index", -1, "the index of the video stream to decode; negative means the first video stream")
	ioTimeout := pflag.Duration("io-timeout", libav.DefaultConfig().IOTimeout, "a limit on a single network wait")
	detectorKind := pflag.String("detector", "none", "face detector: none, pigo, onnx or haar (the last two need OpenCV)")
	detectorModel := pflag.String("detector-model", "", "the model (pigo/haar cascade or ONNX network) for the face detector")
	detectInterval := pflag.Uint64("detect-interval", facedetect.DefaultDetectInterval, "run the face detector on every N-th frame")
	resetDetectionsOnToggle := pflag.Bool("reset-detections-on-toggle", false, "forget the cached face boxes when face detection is switched on")
	snapshotDir := pflag.String("snapshot-dir", snapshot.DefaultDir(), "a directory to save snapshots to")
	sharpen := pflag.Bool("sharpen", false, "enable the sharpen filter from the start")
	blur := pflag.Bool("blur", false, "enable the Gaussian blur filter from the start")
	grayscale := pflag.Bool("grayscale", false, "enable the grayscale filter from the start")
	detectFaces := pflag.Bool("detect-faces", false, "enable face highlighting from the start")
	pflag.Parse()
	if len(pflag.Args()) > 1 {
		pflag.Usage()
		os.Exit(1)
	}
	if pflag.NArg() == 1 && !urltools.IsValidRTSPURL(pflag.Arg(0)) {
		fmt.Fprintf(os.Stderr, "%v\n", urltools.ValidateRTSPURL(pflag.Arg(0)))
		os.Exit(1)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	logger.SetDefault(func() logger.Logger {
		return l
	})
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { logger.Error(ctx, http.ListenAndServe(*netPprofAddr, nil)) })
	}

	libav.RouteLogs(l)

	faces, backend, err := newFaceCache(*detectorKind, *detectorModel, *detectInterval)
	if err != nil {
		logger.Fatalf(ctx, "%v", err)
	}
	if faces != nil {
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Errorf(ctx, "unable to close the face detector: %v", err)
			}
		}()
	} else if *detectFaces {
		logger.Warnf(ctx, "--detect-faces has no effect without a --detector")
	}

	openerCfg := libav.DefaultConfig()
	openerCfg.Transport = *rtspTransport
	openerCfg.IOTimeout = *ioTimeout
	if *streamIndex >= 0 {
		openerCfg.StreamIndex = typing.Opt(*streamIndex)
	}
	if *rtspCredentials != "" {
		openerCfg.Credentials = secret.New(*rtspCredentials)
	}

	frames := sink.NewLatest[*image.RGBA]()

	cfg := streamingrtsp.DefaultConfig()
	cfg.FrameInterval = *frameInterval
	cfg.InitialToggles = imageprocessor.ToggleSet{
		Sharpen:     *sharpen,
		Blur:        *blur,
		Grayscale:   *grayscale,
		DetectFaces: *detectFaces,
	}
	cfg.OnEvent = func(ctx context.Context, ev streamingrtsp.Event) {
		if ev.Err != nil {
			logger.Errorf(ctx, "%s", ev)
			return
		}
		logger.Infof(ctx, "%s", ev)
	}

	session := streamingrtsp.New(
		libav.NewOpener(openerCfg),
		frames,
		imageprocessor.NewDefaultPipeline(faces, *resetDetectionsOnToggle),
		cfg,
	)
	defer func() {
		session.Stop(ctx)
		waitCtx, waitCancelFn := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer waitCancelFn()
		if err := session.Wait(waitCtx); err != nil {
			logger.Errorf(ctx, "the decode worker did not finish: %v", err)
		}
	}()

	if pflag.NArg() == 1 {
		url := pflag.Arg(0)
		logger.Debugf(ctx, "connecting to '%s'...", url)
		if err := session.Start(ctx, url); err != nil {
			logger.Error(ctx, err)
		}
	}

	srv := preview.NewServer(session, frames, snapshot.NewStore(*snapshotDir))
	if pflag.NArg() == 1 {
		srv.DefaultURL = pflag.Arg(0)
	}

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				statsJSON, err := json.Marshal(session.Stats())
				if err != nil {
					logger.Error(ctx, err)
					return
				}
				logger.Debugf(ctx, "%s: %s", session, statsJSON)
			}
		}
	})

	if err := srv.ListenAndServe(ctx, *listenAddr); err != nil {
		logger.Error(ctx, err)
	}
}

func newFaceCache(
	kind string,
	modelPath string,
	interval uint64,
) (*facedetect.Cache, facedetect.Backend, error) {
	var (
		backend facedetect.Backend
		err     error
	)
	switch kind {
	case "", "none":
		return nil, nil, nil
	case "pigo":
		backend, err = facedetect.NewPigoBackend(modelPath, facedetect.DefaultPigoConfig())
	case "onnx":
		backend, err = facedetect.NewONNXBackend(modelPath)
	case "haar":
		backend, err = facedetect.NewHaarBackend(modelPath)
	default:
		return nil, nil, fmt.Errorf("unknown detector '%s'", kind)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("unable to initialize the '%s' face detector: %w", kind, err)
	}
	adapter := facedetect.NewAdapter(backend, facedetect.DefaultAdapterConfig())
	return facedetect.NewCache(adapter, interval), backend, nil
}
