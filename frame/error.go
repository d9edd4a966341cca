package frame

import "fmt"

type ErrInvalidGeometry struct {
	Geometry Geometry
	Reason   string
}

func (e ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("invalid frame geometry %s: %s", e.Geometry, e.Reason)
}

type ErrUnsupportedPixelFormat struct {
	PixelFormat PixelFormat
}

func (e ErrUnsupportedPixelFormat) Error() string {
	return fmt.Sprintf("pixel format %s is not supported here", e.PixelFormat)
}
