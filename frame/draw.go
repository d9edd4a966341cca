package frame

import (
	"image"
	"image/color"
)

var (
	ColorGreen = color.RGBA{R: 0, G: 0xff, B: 0, A: 0xff}
)

// DrawRectangle strokes the outline of r (x, y, width, height semantics:
// the last covered column is r.Max.X-1) with a line of the given
// thickness centered on the outline, clipped to the frame. The
// rectangle is remembered as an overlay.
func (f *Frame) DrawRectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if err := f.strokeRectangle(r, c, thickness); err != nil {
		return err
	}
	f.Overlays = append(f.Overlays, Overlay{Rect: r, Color: c, Thickness: thickness})
	return nil
}

// RedrawOverlays paints all remembered overlays again, e.g. after a
// filter discarded their colors.
func (f *Frame) RedrawOverlays() error {
	for _, o := range f.Overlays {
		if err := f.strokeRectangle(o.Rect, o.Color, o.Thickness); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) strokeRectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if f.PixelFormat != PixelFormatBGRA && f.PixelFormat != PixelFormatBGR24 {
		return ErrUnsupportedPixelFormat{PixelFormat: f.PixelFormat}
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}
	if thickness < 1 {
		thickness = 1
	}
	half := thickness / 2
	last := r.Max.Sub(image.Pt(1, 1))
	outer := image.Rectangle{
		Min: r.Min.Sub(image.Pt(half, half)),
		Max: last.Add(image.Pt(thickness-half, thickness-half)),
	}
	inner := image.Rectangle{
		Min: r.Min.Add(image.Pt(thickness-half, thickness-half)),
		Max: last.Sub(image.Pt(half, half)),
	}
	clipped := outer.Intersect(f.Bounds())
	bpp := f.PixelFormat.BytesPerPixel()
	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		row := f.Pix[y*f.Stride:]
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			if image.Pt(x, y).In(inner) {
				continue
			}
			p := row[x*bpp : x*bpp+bpp]
			p[0], p[1], p[2] = c.B, c.G, c.R
			if bpp == 4 {
				p[3] = c.A
			}
		}
	}
	return nil
}
