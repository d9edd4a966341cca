package imageprocessor

import (
	"context"
	"fmt"
	"math"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/anthonynsimon/bild/convolution"
)

const DefaultGaussianBlurSize = 15

// GaussianBlur is a separable size x size Gaussian blur.
type GaussianBlur struct {
	Size   int
	Sigma  float64
	Kernel convolution.Matrix
}

var _ Step = (*GaussianBlur)(nil)

func NewGaussianBlur(size int) *GaussianBlur {
	if size%2 == 0 {
		size++
	}
	sigma := SigmaForKernelSize(size)
	k := convolution.NewKernel(size, 1)
	center := size / 2
	for i := 0; i < size; i++ {
		d := float64(i - center)
		k.Matrix[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
	return &GaussianBlur{
		Size:   size,
		Sigma:  sigma,
		Kernel: k.Normalized(),
	}
}

// SigmaForKernelSize derives the standard deviation from the kernel
// size the way OpenCV does when the sigma is not given.
func SigmaForKernelSize(size int) float64 {
	return 0.3*(float64(size-1)*0.5-1) + 0.8
}

func (b *GaussianBlur) String() string {
	return fmt.Sprintf("GaussianBlur(%d, %.2f)", b.Size, b.Sigma)
}

func (b *GaussianBlur) Process(
	ctx context.Context,
	f *frame.Frame,
	toggles ToggleSet,
) error {
	if !toggles.Blur {
		return nil
	}
	view, err := f.ChannelView()
	if err != nil {
		return fmt.Errorf("unable to get the image view: %w", err)
	}
	opts := &convolution.Options{KeepAlpha: true}
	out := convolution.Convolve(view, b.Kernel, opts)
	out = convolution.Convolve(out, b.Kernel.Transposed(), opts)
	return f.CopyFromChannelView(out)
}
