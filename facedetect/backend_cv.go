//go:build with_cv
// +build with_cv

package facedetect

import (
	"context"
	"fmt"
	"image"

	"github.com/Hugo-Victorr/Streaming-RTSP/helpers/closuresignaler"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"gocv.io/x/gocv"
)

// ONNXBackend runs a face detection network (YuNet-like output layout)
// through the OpenCV DNN module.
type ONNXBackend struct {
	*closuresignaler.ClosureSignaler
	ModelPath string
	Net       gocv.Net
}

var _ Backend = (*ONNXBackend)(nil)

func NewONNXBackend(modelPath string) (*ONNXBackend, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("unable to load the ONNX model '%s'", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("unable to select the DNN backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("unable to select the DNN target: %w", err)
	}
	return &ONNXBackend{
		ClosureSignaler: closuresignaler.New(),
		ModelPath:       modelPath,
		Net:             net,
	}, nil
}

func (b *ONNXBackend) String() string {
	return fmt.Sprintf("ONNX(%s)", b.ModelPath)
}

func (b *ONNXBackend) Infer(
	ctx context.Context,
	in Input,
) (_ret Tensor, _err error) {
	logger.Tracef(ctx, "Infer")
	defer func() { logger.Tracef(ctx, "/Infer: %v %v", _ret, _err) }()

	img, err := gocv.NewMatFromBytes(in.Height, in.Width, gocv.MatTypeCV8UC3, in.BGR)
	if err != nil {
		return Tensor{}, fmt.Errorf("unable to wrap the input into a Mat: %w", err)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(in.Width, in.Height), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	b.Net.SetInput(blob, "")
	out := b.Net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return Tensor{}, fmt.Errorf("unable to read the network output: %w", err)
	}
	return Tensor{
		Shape: out.Size(),
		Data:  append([]float32(nil), data...),
	}, nil
}

func (b *ONNXBackend) Close() error {
	if !b.ClosureSignaler.Close(context.Background()) {
		return nil
	}
	return b.Net.Close()
}

// HaarBackend detects faces with an OpenCV Haar cascade. It does not
// provide confidences: every detection is reported with the score 1.
type HaarBackend struct {
	*closuresignaler.ClosureSignaler
	CascadePath  string
	Classifier   gocv.CascadeClassifier
	ScaleFactor  float64
	MinNeighbors int

	// MinSize is the smallest face, in source frame pixels.
	MinSize image.Point
}

var _ Backend = (*HaarBackend)(nil)

func NewHaarBackend(cascadePath string) (*HaarBackend, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("unable to load the classifier XML '%s'", cascadePath)
	}
	return &HaarBackend{
		ClosureSignaler: closuresignaler.New(),
		CascadePath:     cascadePath,
		Classifier:      classifier,
		ScaleFactor:     1.1,
		MinNeighbors:    5,
		MinSize:         image.Pt(50, 50),
	}, nil
}

func (b *HaarBackend) String() string {
	return fmt.Sprintf("HaarCascade(%s)", b.CascadePath)
}

func (b *HaarBackend) Infer(
	ctx context.Context,
	in Input,
) (Tensor, error) {
	img, err := gocv.NewMatFromBytes(in.Height, in.Width, gocv.MatTypeCV8UC3, in.BGR)
	if err != nil {
		return Tensor{}, fmt.Errorf("unable to wrap the input into a Mat: %w", err)
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	rects := b.Classifier.DetectMultiScaleWithParams(gray, b.ScaleFactor, b.MinNeighbors, 0, in.ScaleToInput(b.MinSize), image.Point{})
	t := Tensor{
		Shape: []int{len(rects), columnScore + 1},
		Data:  make([]float32, 0, len(rects)*(columnScore+1)),
	}
	for _, r := range rects {
		t.Data = append(t.Data, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 1)
	}
	return t, nil
}

func (b *HaarBackend) Close() error {
	if !b.ClosureSignaler.Close(context.Background()) {
		return nil
	}
	return b.Classifier.Close()
}
