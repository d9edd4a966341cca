package facedetect

import (
	"context"
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
)

type PigoConfig struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinQuality is the detection quality that maps to the score 1;
	// anything weaker is reported with the score 0.
	MinQuality float32
}

func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5,
	}
}

// PigoBackend is a pure-Go face detector (pixel intensity comparison
// based object detection).
type PigoBackend struct {
	Classifier *pigo.Pigo
	Config     PigoConfig

	grayBuf []byte
}

var _ Backend = (*PigoBackend)(nil)

func NewPigoBackend(cascadePath string, cfg PigoConfig) (*PigoBackend, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read the cascade file '%s': %w", cascadePath, err)
	}
	return NewPigoBackendFromBytes(data, cfg)
}

func NewPigoBackendFromBytes(cascade []byte, cfg PigoConfig) (*PigoBackend, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unable to unpack the cascade: %w", err)
	}
	return &PigoBackend{
		Classifier: classifier,
		Config:     cfg,
	}, nil
}

func (b *PigoBackend) String() string {
	return "Pigo"
}

func (b *PigoBackend) Infer(
	ctx context.Context,
	in Input,
) (Tensor, error) {
	b.grayBuf = in.Gray(b.grayBuf)
	maxSize := b.Config.MaxSize
	if m := min(in.Width, in.Height); maxSize <= 0 || maxSize > m {
		maxSize = m
	}
	dets := b.Classifier.RunCascade(pigo.CascadeParams{
		MinSize:     b.Config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: b.Config.ShiftFactor,
		ScaleFactor: b.Config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: b.grayBuf,
			Rows:   in.Height,
			Cols:   in.Width,
			Dim:    in.Width,
		},
	}, 0.0)
	dets = b.Classifier.ClusterDetections(dets, b.Config.IoUThreshold)
	return pigoTensor(dets, b.Config.MinQuality), nil
}

func pigoTensor(dets []pigo.Detection, minQuality float32) Tensor {
	t := Tensor{
		Shape: []int{len(dets), columnScore + 1},
		Data:  make([]float32, 0, len(dets)*(columnScore+1)),
	}
	for _, d := range dets {
		var score float32
		if d.Q >= minQuality {
			score = 1
		}
		half := float32(d.Scale) / 2
		t.Data = append(t.Data,
			float32(d.Col)-half,
			float32(d.Row)-half,
			float32(d.Scale),
			float32(d.Scale),
			score,
		)
	}
	return t
}

func (b *PigoBackend) Close() error {
	return nil
}
