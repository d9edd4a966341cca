package facedetect

import (
	"fmt"
	"image"

	"golang.org/x/exp/constraints"
)

// Box is a detected face in frame coordinates.
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

func (b Box) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampBox moves the origin into [0,width-1]x[0,height-1] and shrinks the
// size so that the box does not leave the frame.
func ClampBox(b Box, width, height int) Box {
	b.X = clamp(b.X, 0, width-1)
	b.Y = clamp(b.Y, 0, height-1)
	b.Width = clamp(b.Width, 0, width-b.X)
	b.Height = clamp(b.Height, 0, height-b.Y)
	return b
}
