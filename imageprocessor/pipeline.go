package imageprocessor

import (
	"context"
	"fmt"
	"strings"

	"github.com/Hugo-Victorr/Streaming-RTSP/facedetect"
	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
	"go.uber.org/atomic"
)

// Pipeline applies the steps in order. A failing step is skipped for the
// current frame; the remaining steps still run.
type Pipeline struct {
	Steps     []Step
	OnFailure func(context.Context, ErrFilter)

	failures atomic.Uint64
}

func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{
		Steps: steps,
	}
}

// NewDefaultPipeline returns FaceHighlight (if faces is not nil),
// Sharpen, GaussianBlur and Grayscale, in this order.
func NewDefaultPipeline(
	faces *facedetect.Cache,
	resetDetectionsOnToggle bool,
) *Pipeline {
	var steps []Step
	if faces != nil {
		steps = append(steps, NewFaceHighlight(faces, resetDetectionsOnToggle))
	}
	steps = append(steps,
		NewSharpen(),
		NewGaussianBlur(DefaultGaussianBlurSize),
		NewGrayscale(),
	)
	return NewPipeline(steps...)
}

func (p *Pipeline) String() string {
	var names []string
	for _, s := range p.Steps {
		names = append(names, s.String())
	}
	return fmt.Sprintf("Pipeline(%s)", strings.Join(names, " -> "))
}

func (p *Pipeline) Process(
	ctx context.Context,
	f *frame.Frame,
	toggles ToggleSet,
) {
	for _, step := range p.Steps {
		err := runStep(ctx, step, f, toggles)
		if err == nil {
			continue
		}
		p.failures.Inc()
		errFilter := ErrFilter{Step: step.String(), Err: err}
		logger.Errorf(ctx, "%v", errFilter)
		if p.OnFailure != nil {
			p.OnFailure(ctx, errFilter)
		}
	}
}

// Failures returns the amount of step failures since the creation.
func (p *Pipeline) Failures() uint64 {
	return p.failures.Load()
}

func runStep(
	ctx context.Context,
	step Step,
	f *frame.Frame,
	toggles ToggleSet,
) (_err error) {
	defer func() {
		if r := recover(); r != nil {
			_err = ErrPanic{Value: r}
		}
	}()
	return step.Process(ctx, f, toggles)
}
