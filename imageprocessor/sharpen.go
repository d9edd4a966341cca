package imageprocessor

import (
	"context"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/anthonynsimon/bild/convolution"
)

// Sharpen applies the 3x3 kernel
//
//	-1 -1 -1
//	-1  9 -1
//	-1 -1 -1
//
// to every channel.
type Sharpen struct {
	Kernel *convolution.Kernel
}

var _ Step = (*Sharpen)(nil)

func NewSharpen() *Sharpen {
	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, []float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	})
	return &Sharpen{Kernel: k}
}

func (s *Sharpen) String() string {
	return "Sharpen"
}

func (s *Sharpen) Process(
	ctx context.Context,
	f *frame.Frame,
	toggles ToggleSet,
) error {
	if !toggles.Sharpen {
		return nil
	}
	view, err := f.ChannelView()
	if err != nil {
		return fmt.Errorf("unable to get the image view: %w", err)
	}
	out := convolution.Convolve(view, s.Kernel, &convolution.Options{})
	return f.CopyFromChannelView(out)
}
