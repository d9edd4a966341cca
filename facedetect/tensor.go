package facedetect

import (
	"fmt"
	"math"
)

const (
	columnX = iota
	columnY
	columnWidth
	columnHeight
	columnScore
)

// Tensor is a raw detector output: a dense row-major float32 array.
//
// Each detection row starts with x, y, width, height, score (in input
// image coordinates); additional columns (landmarks, etc) are ignored.
type Tensor struct {
	Shape []int
	Data  []float32
}

func (t Tensor) String() string {
	return fmt.Sprintf("Tensor(%v)", t.Shape)
}

// Matrix returns the tensor as rows x cols.
//
// A rank-2 tensor is taken as is; higher ranks are collapsed so that the
// second to last dimension becomes the row count.
func (t Tensor) Matrix() (rows, cols int, err error) {
	total := 1
	for _, d := range t.Shape {
		if d < 0 {
			return 0, 0, fmt.Errorf("negative dimension in shape %v", t.Shape)
		}
		total *= d
	}
	if total != len(t.Data) {
		return 0, 0, fmt.Errorf("shape %v requires %d values, but have %d", t.Shape, total, len(t.Data))
	}

	switch rank := len(t.Shape); rank {
	case 2:
		rows, cols = t.Shape[0], t.Shape[1]
	case 3, 4:
		rows = t.Shape[rank-2]
		if rows == 0 {
			return 0, 0, nil
		}
		cols = total / rows
	default:
		return 0, 0, fmt.Errorf("unsupported tensor rank %d", rank)
	}
	return rows, cols, nil
}

// DecodeDetections converts a detector output into boxes in the original
// frame coordinates.
func DecodeDetections(
	t Tensor,
	scoreThreshold float32,
	scaleX, scaleY float64,
	frameWidth, frameHeight int,
) ([]Box, error) {
	rows, cols, err := t.Matrix()
	if err != nil {
		return nil, fmt.Errorf("unable to interpret %s: %w", t, err)
	}
	if rows == 0 {
		return nil, nil
	}
	if cols <= columnScore {
		return nil, fmt.Errorf("a detection row has %d columns, at least %d expected", cols, columnScore+1)
	}

	var result []Box
	for i := 0; i < rows; i++ {
		row := t.Data[i*cols : (i+1)*cols]
		if row[columnScore] < scoreThreshold {
			continue
		}
		b := Box{
			X:      int(math.Round(float64(row[columnX]) * scaleX)),
			Y:      int(math.Round(float64(row[columnY]) * scaleY)),
			Width:  int(math.Round(float64(row[columnWidth]) * scaleX)),
			Height: int(math.Round(float64(row[columnHeight]) * scaleY)),
		}
		result = append(result, ClampBox(b, frameWidth, frameHeight))
	}
	return result, nil
}
