package imageprocessor

import (
	"context"
	"fmt"
	"image/color"

	"github.com/Hugo-Victorr/Streaming-RTSP/facedetect"
	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
)

const DefaultHighlightThickness = 3

// FaceHighlight outlines the faces found by the (throttled) detector.
type FaceHighlight struct {
	Cache         *facedetect.Cache
	Color         color.RGBA
	Thickness     int
	ResetOnToggle bool

	wasEnabled bool
}

var _ Step = (*FaceHighlight)(nil)

func NewFaceHighlight(
	cache *facedetect.Cache,
	resetOnToggle bool,
) *FaceHighlight {
	return &FaceHighlight{
		Cache:         cache,
		Color:         frame.ColorGreen,
		Thickness:     DefaultHighlightThickness,
		ResetOnToggle: resetOnToggle,
	}
}

func (h *FaceHighlight) String() string {
	return fmt.Sprintf("FaceHighlight(%s)", h.Cache)
}

func (h *FaceHighlight) Process(
	ctx context.Context,
	f *frame.Frame,
	toggles ToggleSet,
) error {
	if !toggles.DetectFaces {
		h.wasEnabled = false
		return nil
	}
	if !h.wasEnabled && h.ResetOnToggle {
		h.Cache.Reset()
	}
	h.wasEnabled = true

	// on a detector failure the previous boxes are still drawn
	boxes, detectErr := h.Cache.Boxes(ctx, f)
	for _, b := range boxes {
		if err := f.DrawRectangle(b.Rect(), h.Color, h.Thickness); err != nil {
			return fmt.Errorf("unable to draw %s: %w", b, err)
		}
	}
	return detectErr
}
