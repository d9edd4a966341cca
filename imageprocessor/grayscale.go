package imageprocessor

import (
	"context"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/anthonynsimon/bild/effect"
)

// Grayscale replaces the colors with their luminance, keeping the
// channel count. Overlays (face highlights) are repainted afterwards.
type Grayscale struct{}

var _ Step = (*Grayscale)(nil)

func NewGrayscale() *Grayscale {
	return &Grayscale{}
}

func (Grayscale) String() string {
	return "Grayscale"
}

func (Grayscale) Process(
	ctx context.Context,
	f *frame.Frame,
	toggles ToggleSet,
) error {
	if !toggles.Grayscale {
		return nil
	}
	view, err := f.ChannelView()
	if err != nil {
		return fmt.Errorf("unable to get the image view: %w", err)
	}
	// the view is BGRA, so the weights go in the B, G, R order
	gray := effect.GrayscaleWithWeights(view, 0.114, 0.587, 0.299)
	if err := f.CopyFromChannelView(gray); err != nil {
		return fmt.Errorf("unable to store the luminance: %w", err)
	}
	if err := f.RedrawOverlays(); err != nil {
		return fmt.Errorf("unable to redraw the overlays: %w", err)
	}
	return nil
}
