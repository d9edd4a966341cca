package facedetect

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetectionsRanks(t *testing.T) {
	row := []float32{10, 20, 30, 40, 0.9, 1, 2, 3}
	for _, shape := range [][]int{
		{1, 8},
		{1, 1, 8},
		{1, 1, 1, 8},
	} {
		t.Run("", func(t *testing.T) {
			boxes, err := DecodeDetections(Tensor{Shape: shape, Data: row}, 0.5, 1, 1, 100, 100)
			require.NoError(t, err)
			require.Equal(t, []Box{{X: 10, Y: 20, Width: 30, Height: 40}}, boxes)
		})
	}
}

func TestDecodeDetectionsThresholdAndScale(t *testing.T) {
	data := []float32{
		100, 100, 50, 50, 0.9,
		10, 10, 10, 10, 0.49,
		0, 0, 10, 10, 0.5,
	}
	boxes, err := DecodeDetections(Tensor{Shape: []int{1, 3, 5}, Data: data}, 0.5, 2, 1.125, 1280, 720)
	require.NoError(t, err)
	require.Equal(t, []Box{
		{X: 200, Y: 113, Width: 100, Height: 56},
		{X: 0, Y: 0, Width: 20, Height: 11},
	}, boxes)
}

func TestDecodeDetectionsEmptyAndMalformed(t *testing.T) {
	boxes, err := DecodeDetections(Tensor{Shape: []int{1, 0, 15}}, 0.5, 1, 1, 10, 10)
	require.NoError(t, err)
	require.Empty(t, boxes)

	_, err = DecodeDetections(Tensor{Shape: []int{2, 4}, Data: make([]float32, 8)}, 0.5, 1, 1, 10, 10)
	require.Error(t, err)

	_, err = DecodeDetections(Tensor{Shape: []int{2, 5}, Data: make([]float32, 9)}, 0.5, 1, 1, 10, 10)
	require.Error(t, err)

	_, err = DecodeDetections(Tensor{Shape: []int{10}, Data: make([]float32, 10)}, 0.5, 1, 1, 10, 10)
	require.Error(t, err)
}

func TestClampBox(t *testing.T) {
	for _, tc := range []struct {
		in, out Box
	}{
		{Box{X: 10, Y: 10, Width: 20, Height: 20}, Box{X: 10, Y: 10, Width: 20, Height: 20}},
		{Box{X: -5, Y: -7, Width: 20, Height: 20}, Box{X: 0, Y: 0, Width: 20, Height: 20}},
		{Box{X: 90, Y: 40, Width: 20, Height: 20}, Box{X: 90, Y: 40, Width: 10, Height: 10}},
		{Box{X: 150, Y: 80, Width: 20, Height: 20}, Box{X: 99, Y: 49, Width: 1, Height: 1}},
		{Box{X: 5, Y: 5, Width: -3, Height: -1}, Box{X: 5, Y: 5, Width: 0, Height: 0}},
	} {
		out := ClampBox(tc.in, 100, 50)
		require.Equal(t, tc.out, out, tc.in.String())
		require.True(t, out.Rect().In(image.Rect(0, 0, 100, 50)))
	}
}

type fakeBackend struct {
	inputs []Input
	out    Tensor
	err    error
}

func (b *fakeBackend) String() string { return "fake" }

func (b *fakeBackend) Infer(_ context.Context, in Input) (Tensor, error) {
	b.inputs = append(b.inputs, in)
	return b.out, b.err
}

func (b *fakeBackend) Close() error { return nil }

func TestAdapterDetect(t *testing.T) {
	ctx := context.Background()
	g := frame.NewGeometry(1280, 720, frame.PixelFormatBGRA)
	f := &frame.Frame{Geometry: g, Pix: make([]byte, g.BufferSize())}
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i+0], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = 10, 20, 30, 0xff
	}

	backend := &fakeBackend{out: Tensor{
		Shape: []int{1, 1, 5},
		Data:  []float32{100, 100, 50, 50, 0.9},
	}}
	a := NewAdapter(backend, DefaultAdapterConfig())
	boxes, err := a.Detect(ctx, f)
	require.NoError(t, err)
	require.Equal(t, []Box{{X: 200, Y: 113, Width: 100, Height: 56}}, boxes)

	require.Len(t, backend.inputs, 1)
	in := backend.inputs[0]
	require.Equal(t, 640, in.Width)
	require.Equal(t, 640, in.Height)
	require.Equal(t, 1280, in.SourceWidth)
	require.Equal(t, 720, in.SourceHeight)
	require.Len(t, in.BGR, 640*640*3)
	require.InDelta(t, 10, int(in.BGR[0]), 1)
	require.InDelta(t, 20, int(in.BGR[1]), 1)
	require.InDelta(t, 30, int(in.BGR[2]), 1)
}

func TestAdapterNormalizesGray(t *testing.T) {
	g := frame.NewGeometry(64, 32, frame.PixelFormatGray8)
	f := &frame.Frame{Geometry: g, Pix: make([]byte, g.BufferSize())}
	for i := range f.Pix {
		f.Pix[i] = 77
	}
	backend := &fakeBackend{out: Tensor{Shape: []int{0, 5}}}
	a := NewAdapter(backend, AdapterConfig{InputWidth: 32, InputHeight: 32, ScoreThreshold: 0.5})
	boxes, err := a.Detect(context.Background(), f)
	require.NoError(t, err)
	require.Empty(t, boxes)
	require.Len(t, backend.inputs[0].BGR, 32*32*3)
	require.InDelta(t, 77, int(backend.inputs[0].BGR[3*100+1]), 1)
}

func TestAdapterBackendError(t *testing.T) {
	g := frame.NewGeometry(8, 8, frame.PixelFormatBGRA)
	f := &frame.Frame{Geometry: g, Pix: make([]byte, g.BufferSize())}
	errBoom := errors.New("boom")
	a := NewAdapter(&fakeBackend{err: errBoom}, DefaultAdapterConfig())
	_, err := a.Detect(context.Background(), f)
	require.ErrorIs(t, err, errBoom)
}

type countingDetector struct {
	calls []uint64
	frame uint64
	err   error
}

func (d *countingDetector) Detect(context.Context, *frame.Frame) ([]Box, error) {
	d.calls = append(d.calls, d.frame)
	if d.err != nil {
		return nil, d.err
	}
	return []Box{{X: int(d.frame), Width: 1, Height: 1}}, nil
}

func TestCacheThrottling(t *testing.T) {
	ctx := context.Background()
	det := &countingDetector{}
	c := NewCache(det, 5)
	f := &frame.Frame{}

	var last []Box
	for i := uint64(1); i <= 20; i++ {
		det.frame = i
		boxes, err := c.Boxes(ctx, f)
		require.NoError(t, err)
		if i < 5 {
			require.Empty(t, boxes)
		}
		last = boxes
	}
	require.Equal(t, []uint64{5, 10, 15, 20}, det.calls)
	require.EqualValues(t, 4, c.Invocations())
	require.Equal(t, []Box{{X: 20, Width: 1, Height: 1}}, last)
}

func TestCacheKeepsBoxesOnErrorAndResets(t *testing.T) {
	ctx := context.Background()
	det := &countingDetector{}
	c := NewCache(det, 1)

	det.frame = 1
	boxes, err := c.Boxes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, boxes, 1)

	det.err = errors.New("boom")
	boxes, err = c.Boxes(ctx, nil)
	require.Error(t, err)
	require.Equal(t, []Box{{X: 1, Width: 1, Height: 1}}, boxes)

	c.Reset()
	det.err = nil
	c.Interval = 3
	for i := 0; i < 2; i++ {
		boxes, err = c.Boxes(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, boxes)
	}
}

func TestPigoTensor(t *testing.T) {
	out := pigoTensor([]pigo.Detection{
		{Row: 50, Col: 40, Scale: 20, Q: 9},
		{Row: 10, Col: 10, Scale: 4, Q: 1},
	}, 5)
	require.Equal(t, []int{2, 5}, out.Shape)

	boxes, err := DecodeDetections(out, 0.5, 1, 1, 100, 100)
	require.NoError(t, err)
	require.Equal(t, []Box{{X: 30, Y: 40, Width: 20, Height: 20}}, boxes)
}

func TestInputScaleToInput(t *testing.T) {
	in := Input{Width: 640, Height: 640, SourceWidth: 1280, SourceHeight: 720}
	require.Equal(t, image.Pt(25, 44), in.ScaleToInput(image.Pt(50, 50)))
	require.Equal(t, image.Pt(1, 1), in.ScaleToInput(image.Pt(1, 1)))
	require.Equal(t, image.Pt(50, 50), Input{Width: 640, Height: 640}.ScaleToInput(image.Pt(50, 50)))
}

func TestInputGray(t *testing.T) {
	in := Input{Width: 2, Height: 1, BGR: []byte{0, 0, 255, 255, 255, 255}}
	require.Equal(t, []byte{frame.Luma(255, 0, 0), 255}, in.Gray(nil))
}
