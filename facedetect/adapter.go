package facedetect

import (
	"context"
	"fmt"
	"image"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"github.com/anthonynsimon/bild/transform"
)

// Detector finds faces in a frame.
type Detector interface {
	Detect(context.Context, *frame.Frame) ([]Box, error)
}

type AdapterConfig struct {
	InputWidth     int
	InputHeight    int
	ScoreThreshold float32
}

func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		InputWidth:     640,
		InputHeight:    640,
		ScoreThreshold: 0.5,
	}
}

// Adapter brings a frame to the shape a Backend expects and maps the
// backend's answer back to the frame.
type Adapter struct {
	Backend Backend
	Config  AdapterConfig

	bgrBuf []byte
}

var _ Detector = (*Adapter)(nil)

func NewAdapter(backend Backend, cfg AdapterConfig) *Adapter {
	return &Adapter{
		Backend: backend,
		Config:  cfg,
	}
}

func (a *Adapter) String() string {
	return fmt.Sprintf("Adapter(%s, %dx%d)", a.Backend, a.Config.InputWidth, a.Config.InputHeight)
}

func (a *Adapter) Detect(
	ctx context.Context,
	f *frame.Frame,
) (_ret []Box, _err error) {
	logger.Tracef(ctx, "Detect: %s", f.Geometry)
	defer func() { logger.Tracef(ctx, "/Detect: %v %v", _ret, _err) }()

	in, err := a.prepare(f)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare the detector input: %w", err)
	}

	out, err := a.Backend.Infer(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("unable to run %s: %w", a.Backend, err)
	}

	scaleX := float64(f.Width) / float64(a.Config.InputWidth)
	scaleY := float64(f.Height) / float64(a.Config.InputHeight)
	return DecodeDetections(out, a.Config.ScoreThreshold, scaleX, scaleY, f.Width, f.Height)
}

func (a *Adapter) prepare(f *frame.Frame) (Input, error) {
	if a.Config.InputWidth <= 0 || a.Config.InputHeight <= 0 {
		return Input{}, fmt.Errorf("invalid input size %dx%d", a.Config.InputWidth, a.Config.InputHeight)
	}

	var src *image.RGBA
	switch f.PixelFormat {
	case frame.PixelFormatBGRA:
		view, err := f.ChannelView()
		if err != nil {
			return Input{}, err
		}
		src = view
	default:
		bgr, err := f.ToBGR(a.bgrBuf)
		if err != nil {
			return Input{}, err
		}
		a.bgrBuf = bgr
		src = packedToChannelView(bgr, f.Width, f.Height)
	}

	// the channel order is kept as is: "R" holds blue
	resized := transform.Resize(src, a.Config.InputWidth, a.Config.InputHeight, transform.Linear)

	in := Input{
		Width:        a.Config.InputWidth,
		Height:       a.Config.InputHeight,
		SourceWidth:  f.Width,
		SourceHeight: f.Height,
		BGR:          make([]byte, a.Config.InputWidth*a.Config.InputHeight*3),
	}
	for y := 0; y < in.Height; y++ {
		row := resized.Pix[y*resized.Stride:]
		out := in.BGR[y*in.Width*3:]
		for x := 0; x < in.Width; x++ {
			copy(out[x*3:x*3+3], row[x*4:x*4+3])
		}
	}
	return in, nil
}

func packedToChannelView(bgr []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		copy(img.Pix[i*4:i*4+3], bgr[i*3:i*3+3])
		img.Pix[i*4+3] = 0xff
	}
	return img
}
