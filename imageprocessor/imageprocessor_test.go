package imageprocessor

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/Hugo-Victorr/Streaming-RTSP/facedetect"
	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/stretchr/testify/require"
)

func newFrame(w, h int, b, g, r uint8) *frame.Frame {
	geom := frame.NewGeometry(w, h, frame.PixelFormatBGRA)
	f := &frame.Frame{Geometry: geom, Pix: make([]byte, geom.BufferSize())}
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i+0], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = b, g, r, 0xff
	}
	return f
}

func pixel(f *frame.Frame, x, y int) []byte {
	off := y*f.Stride + x*4
	return f.Pix[off : off+4]
}

type fakeDetector struct {
	calls int
	boxes []facedetect.Box
	err   error
}

func (d *fakeDetector) Detect(context.Context, *frame.Frame) ([]facedetect.Box, error) {
	d.calls++
	return d.boxes, d.err
}

func TestPipelineAllOffIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFrame(32, 24, 0, 0, 0)
	rand.New(rand.NewSource(0)).Read(f.Pix)
	orig := append([]byte(nil), f.Pix...)

	det := &fakeDetector{boxes: []facedetect.Box{{X: 1, Y: 1, Width: 5, Height: 5}}}
	p := NewDefaultPipeline(facedetect.NewCache(det, 1), false)
	for i := 0; i < 3; i++ {
		p.Process(ctx, f, ToggleSet{})
	}
	require.Equal(t, orig, f.Pix)
	require.Empty(t, f.Overlays)
	require.Zero(t, det.calls)
	require.Zero(t, p.Failures())
}

func TestSharpen(t *testing.T) {
	ctx := context.Background()
	f := newFrame(5, 5, 100, 100, 100)
	copy(pixel(f, 2, 2), []byte{110, 110, 110})

	require.NoError(t, NewSharpen().Process(ctx, f, ToggleSet{Sharpen: true}))
	require.Equal(t, []byte{190, 190, 190, 0xff}, pixel(f, 2, 2))
	require.Equal(t, []byte{90, 90, 90, 0xff}, pixel(f, 1, 2))
	require.Equal(t, []byte{100, 100, 100, 0xff}, pixel(f, 0, 0))
}

func TestSharpenKeepsUniformImage(t *testing.T) {
	f := newFrame(8, 8, 10, 20, 30)
	orig := append([]byte(nil), f.Pix...)
	require.NoError(t, NewSharpen().Process(context.Background(), f, ToggleSet{Sharpen: true}))
	require.Equal(t, orig, f.Pix)
}

func TestGaussianBlur(t *testing.T) {
	require.InDelta(t, 2.6, SigmaForKernelSize(15), 1e-9)

	ctx := context.Background()
	f := newFrame(31, 31, 0, 0, 0)
	copy(pixel(f, 15, 15), []byte{255, 255, 255})

	b := NewGaussianBlur(DefaultGaussianBlurSize)
	require.NoError(t, b.Process(ctx, f, ToggleSet{Blur: true}))

	center := pixel(f, 15, 15)[0]
	near := pixel(f, 16, 15)[0]
	far := pixel(f, 0, 0)[0]
	require.Less(t, center, uint8(255))
	require.Greater(t, center, uint8(0))
	require.LessOrEqual(t, near, center)
	require.Zero(t, far)
	require.Equal(t, uint8(0xff), pixel(f, 15, 15)[3])
}

func TestGaussianBlurKeepsUniformImage(t *testing.T) {
	f := newFrame(20, 20, 50, 100, 150)
	require.NoError(t, NewGaussianBlur(DefaultGaussianBlurSize).Process(context.Background(), f, ToggleSet{Blur: true}))
	p := pixel(f, 10, 10)
	require.InDelta(t, 50, int(p[0]), 1)
	require.InDelta(t, 100, int(p[1]), 1)
	require.InDelta(t, 150, int(p[2]), 1)
}

func TestGrayscale(t *testing.T) {
	f := newFrame(4, 4, 0, 0, 255)
	require.NoError(t, NewGrayscale().Process(context.Background(), f, ToggleSet{Grayscale: true}))
	p := pixel(f, 1, 1)
	require.InDelta(t, int(frame.Luma(255, 0, 0)), int(p[0]), 1)
	require.Equal(t, p[0], p[1])
	require.Equal(t, p[0], p[2])
	require.Equal(t, uint8(0xff), p[3])
}

func TestGrayscaleKeepsAlphaAndPadding(t *testing.T) {
	geom := frame.Geometry{Width: 2, Height: 2, Stride: 12, PixelFormat: frame.PixelFormatBGRA}
	f := &frame.Frame{Geometry: geom, Pix: []byte{
		0, 0, 255, 0x40, 255, 0, 0, 0x80, 0xee, 0xee, 0xee, 0xee,
		0, 255, 0, 0x10, 10, 10, 10, 0xff, 0xee, 0xee, 0xee, 0xee,
	}}
	require.NoError(t, NewGrayscale().Process(context.Background(), f, ToggleSet{Grayscale: true}))

	require.InDelta(t, int(frame.Luma(255, 0, 0)), int(f.Pix[0]), 1)
	require.Equal(t, []byte{f.Pix[0], f.Pix[0], 0x40}, f.Pix[1:4])
	require.InDelta(t, int(frame.Luma(0, 0, 255)), int(f.Pix[4]), 1)
	require.Equal(t, uint8(0x80), f.Pix[7])
	require.InDelta(t, int(frame.Luma(0, 255, 0)), int(f.Pix[12]), 1)
	require.Equal(t, uint8(0x10), f.Pix[15])
	require.Equal(t, []byte{10, 10, 10, 0xff}, f.Pix[16:20])
	require.Equal(t, []byte{0xee, 0xee, 0xee, 0xee}, f.Pix[8:12])
	require.Equal(t, []byte{0xee, 0xee, 0xee, 0xee}, f.Pix[20:24])
}

func TestFaceHighlightSurvivesGrayscale(t *testing.T) {
	ctx := context.Background()
	f := newFrame(40, 40, 0, 0, 200)
	det := &fakeDetector{boxes: []facedetect.Box{{X: 10, Y: 10, Width: 10, Height: 10}}}
	p := NewDefaultPipeline(facedetect.NewCache(det, 1), false)

	p.Process(ctx, f, ToggleSet{DetectFaces: true, Grayscale: true})
	require.Zero(t, p.Failures())
	require.Equal(t, 1, det.calls)
	require.Len(t, f.Overlays, 1)

	require.Equal(t, []byte{0, 0xff, 0, 0xff}, pixel(f, 10, 10))
	require.Equal(t, []byte{0, 0xff, 0, 0xff}, pixel(f, 19, 15))
	inside := pixel(f, 15, 15)
	require.Equal(t, inside[0], inside[1])
	require.Equal(t, inside[1], inside[2])
}

func TestFaceHighlightThrottledAndReset(t *testing.T) {
	ctx := context.Background()
	det := &fakeDetector{}
	step := NewFaceHighlight(facedetect.NewCache(det, 5), true)
	f := newFrame(8, 8, 0, 0, 0)

	run := func(n int, enabled bool) {
		for i := 0; i < n; i++ {
			require.NoError(t, step.Process(ctx, f, ToggleSet{DetectFaces: enabled}))
		}
	}
	run(4, true)
	require.Zero(t, det.calls)
	run(3, false)
	run(1, true)
	require.Zero(t, det.calls, "the frame counter must restart after re-enabling")
	run(4, true)
	require.Equal(t, 1, det.calls)

	step.ResetOnToggle = false
	run(1, false)
	run(4, true)
	require.Equal(t, 1, det.calls)
	run(1, true)
	require.Equal(t, 2, det.calls)
}

type failingStep struct {
	name  string
	panic bool
}

func (s failingStep) String() string { return s.name }

func (s failingStep) Process(context.Context, *frame.Frame, ToggleSet) error {
	if s.panic {
		panic("kaboom")
	}
	return errors.New("broken")
}

type recordingStep struct {
	calls int
}

func (s *recordingStep) String() string { return "recording" }

func (s *recordingStep) Process(context.Context, *frame.Frame, ToggleSet) error {
	s.calls++
	return nil
}

func TestPipelineIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	rec := &recordingStep{}
	p := NewPipeline(
		failingStep{name: "erroring"},
		failingStep{name: "panicking", panic: true},
		rec,
	)
	var failures []ErrFilter
	p.OnFailure = func(_ context.Context, err ErrFilter) {
		failures = append(failures, err)
	}

	p.Process(ctx, newFrame(2, 2, 0, 0, 0), ToggleSet{})
	require.Equal(t, 1, rec.calls)
	require.EqualValues(t, 2, p.Failures())
	require.Len(t, failures, 2)
	require.Equal(t, "erroring", failures[0].Step)
	require.Equal(t, "panicking", failures[1].Step)
	var errPanic ErrPanic
	require.ErrorAs(t, failures[1], &errPanic)
	require.Equal(t, "kaboom", errPanic.Value)
}

func TestTogglesByName(t *testing.T) {
	toggles := NewToggles(ToggleSet{})
	for _, name := range []string{"sharpen", "blur", "grayscale", "detect-faces"} {
		flag, err := toggles.ByName(name)
		require.NoError(t, err)
		flag.Store(true)
	}
	require.Equal(t, ToggleSet{Sharpen: true, Blur: true, Grayscale: true, DetectFaces: true}, toggles.Snapshot())

	_, err := toggles.ByName("sepia")
	require.Error(t, err)
}
