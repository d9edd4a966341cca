package imageprocessor

import (
	"fmt"

	"go.uber.org/atomic"
)

// ToggleSet is a consistent per-frame reading of Toggles.
type ToggleSet struct {
	Sharpen     bool
	Blur        bool
	Grayscale   bool
	DetectFaces bool
}

func (s ToggleSet) String() string {
	return fmt.Sprintf("sharpen:%t blur:%t grayscale:%t detect-faces:%t", s.Sharpen, s.Blur, s.Grayscale, s.DetectFaces)
}

// Toggles is the filter configuration shared between the controller and
// the decode worker. Each flag is independent; no cross-flag atomicity
// is provided.
type Toggles struct {
	Sharpen     atomic.Bool
	Blur        atomic.Bool
	Grayscale   atomic.Bool
	DetectFaces atomic.Bool
}

func NewToggles(initial ToggleSet) *Toggles {
	t := &Toggles{}
	t.Store(initial)
	return t
}

func (t *Toggles) Snapshot() ToggleSet {
	return ToggleSet{
		Sharpen:     t.Sharpen.Load(),
		Blur:        t.Blur.Load(),
		Grayscale:   t.Grayscale.Load(),
		DetectFaces: t.DetectFaces.Load(),
	}
}

func (t *Toggles) Store(s ToggleSet) {
	t.Sharpen.Store(s.Sharpen)
	t.Blur.Store(s.Blur)
	t.Grayscale.Store(s.Grayscale)
	t.DetectFaces.Store(s.DetectFaces)
}

// ByName returns the flag named as in the command line and HTTP API.
func (t *Toggles) ByName(name string) (*atomic.Bool, error) {
	switch name {
	case "sharpen":
		return &t.Sharpen, nil
	case "blur":
		return &t.Blur, nil
	case "grayscale":
		return &t.Grayscale, nil
	case "detect-faces":
		return &t.DetectFaces, nil
	default:
		return nil, fmt.Errorf("unknown filter '%s'", name)
	}
}
