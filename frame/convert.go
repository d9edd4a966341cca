package frame

import (
	"image"
)

// ToRGBA converts the frame into a displayable image. The result is a
// copy: it stays valid after the frame buffer is overwritten. dst is
// reused when it already has the right size.
func (f *Frame) ToRGBA(dst *image.RGBA) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if dst == nil || dst.Rect != f.Bounds() {
		dst = image.NewRGBA(f.Bounds())
	}
	bpp := f.PixelFormat.BytesPerPixel()
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+f.Width*bpp]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			s := src[x*bpp : x*bpp+bpp]
			o := out[x*4 : x*4+4]
			switch f.PixelFormat {
			case PixelFormatGray8:
				o[0], o[1], o[2], o[3] = s[0], s[0], s[0], 0xff
			case PixelFormatBGR24:
				o[0], o[1], o[2], o[3] = s[2], s[1], s[0], 0xff
			case PixelFormatBGRA:
				o[0], o[1], o[2], o[3] = s[2], s[1], s[0], s[3]
			}
		}
	}
	return dst, nil
}

// ToBGR packs the frame into 3-channel BGR, whatever the source channel
// count is. dst is reused if it is large enough.
func (f *Frame) ToBGR(dst []byte) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	size := f.Width * f.Height * 3
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	bpp := f.PixelFormat.BytesPerPixel()
	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride:]
		out := dst[y*f.Width*3:]
		for x := 0; x < f.Width; x++ {
			s := src[x*bpp:]
			o := out[x*3 : x*3+3]
			if f.PixelFormat == PixelFormatGray8 {
				o[0], o[1], o[2] = s[0], s[0], s[0]
				continue
			}
			o[0], o[1], o[2] = s[0], s[1], s[2]
		}
	}
	return dst, nil
}

// Luma is the BT.601 luminance, rounded, as OpenCV computes it for
// RGB->GRAY conversions.
func Luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}
