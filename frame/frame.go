// Package frame describes one decoded picture as a lightweight view over a
// caller-owned pixel buffer.
package frame

import (
	"fmt"
	"image"
	"image/color"
)

type PixelFormat int

const (
	PixelFormatUndefined PixelFormat = iota
	PixelFormatGray8
	PixelFormatBGR24
	PixelFormatBGRA
)

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatGray8:
		return 1
	case PixelFormatBGR24:
		return 3
	case PixelFormatBGRA:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUndefined:
		return "undefined"
	case PixelFormatGray8:
		return "gray8"
	case PixelFormatBGR24:
		return "bgr24"
	case PixelFormatBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("unknown_pixel_format_%d", int(f))
	}
}

type Geometry struct {
	Width       int
	Height      int
	Stride      int
	PixelFormat PixelFormat
}

// NewGeometry returns a geometry with tightly packed rows.
func NewGeometry(width, height int, pixFmt PixelFormat) Geometry {
	return Geometry{
		Width:       width,
		Height:      height,
		Stride:      width * pixFmt.BytesPerPixel(),
		PixelFormat: pixFmt,
	}
}

func (g Geometry) BufferSize() int {
	return g.Stride * g.Height
}

func (g Geometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d:%s(stride:%d)", g.Width, g.Height, g.PixelFormat, g.Stride)
}

func (g Geometry) Validate() error {
	bpp := g.PixelFormat.BytesPerPixel()
	switch {
	case bpp == 0:
		return ErrInvalidGeometry{Geometry: g, Reason: "unsupported pixel format"}
	case g.Width <= 0 || g.Height <= 0:
		return ErrInvalidGeometry{Geometry: g, Reason: "non-positive dimensions"}
	case g.Stride < g.Width*bpp:
		return ErrInvalidGeometry{Geometry: g, Reason: "stride is shorter than a row"}
	}
	return nil
}

// Overlay is a rectangle drawn on top of the picture that later
// color-destroying filters must preserve.
type Overlay struct {
	Rect      image.Rectangle
	Color     color.RGBA
	Thickness int
}

type Frame struct {
	Geometry
	Pix      []byte
	Overlays []Overlay
}

// Reset re-points the view to a buffer, keeping the overlays' backing
// array so a decode loop does not allocate per frame.
func (f *Frame) Reset(g Geometry, pix []byte) {
	f.Geometry = g
	f.Pix = pix
	f.Overlays = f.Overlays[:0]
}

func (f *Frame) Validate() error {
	if err := f.Geometry.Validate(); err != nil {
		return err
	}
	if len(f.Pix) < f.BufferSize() {
		return ErrInvalidGeometry{
			Geometry: f.Geometry,
			Reason:   fmt.Sprintf("buffer holds %d bytes, %d required", len(f.Pix), f.BufferSize()),
		}
	}
	return nil
}

// ChannelView exposes a BGRA frame as an *image.RGBA sharing the same
// memory. Channels are NOT swapped: the view is only meaningful for
// operations that treat all channels alike (convolutions, resizing).
func (f *Frame) ChannelView() (*image.RGBA, error) {
	if f.PixelFormat != PixelFormatBGRA {
		return nil, ErrUnsupportedPixelFormat{PixelFormat: f.PixelFormat}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &image.RGBA{
		Pix:    f.Pix[:f.BufferSize()],
		Stride: f.Stride,
		Rect:   f.Bounds(),
	}, nil
}

// CopyFromChannelView writes back the result of an operation performed on
// a ChannelView (or on a copy of it).
func (f *Frame) CopyFromChannelView(img *image.RGBA) error {
	if img.Rect.Dx() != f.Width || img.Rect.Dy() != f.Height {
		return fmt.Errorf("image is %v, frame is %dx%d", img.Rect, f.Width, f.Height)
	}
	rowLen := f.Width * 4
	for y := 0; y < f.Height; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		copy(f.Pix[y*f.Stride:y*f.Stride+rowLen], src[:rowLen])
	}
	return nil
}
