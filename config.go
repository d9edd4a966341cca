package streamingrtsp

import (
	"context"
	"time"

	"github.com/Hugo-Victorr/Streaming-RTSP/imageprocessor"
	"github.com/Hugo-Victorr/Streaming-RTSP/source"
)

type Config struct {
	// FrameInterval is the minimal time between two published frames,
	// measured from the start of an iteration.
	FrameInterval time.Duration

	// The delay between polls while the source has no frame grows from
	// NoFramePollMin up to NoFramePollMax.
	NoFramePollMin time.Duration
	NoFramePollMax time.Duration

	InitialToggles imageprocessor.ToggleSet
	Allocator      source.BufferAllocator

	// OnEvent is called from the goroutine causing the change, never
	// with the session lock held.
	OnEvent func(context.Context, Event)
}

func DefaultConfig() Config {
	return Config{
		FrameInterval:  33 * time.Millisecond,
		NoFramePollMin: 2 * time.Millisecond,
		NoFramePollMax: 50 * time.Millisecond,
		Allocator:      source.HeapAllocator{},
	}
}
