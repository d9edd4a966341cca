package streamingrtsp

import (
	"go.uber.org/atomic"
)

type Stats struct {
	FramesDecoded   uint64
	FramesPublished uint64
	NoFramePolls    uint64
	FilterFailures  uint64
}

type stats struct {
	FramesDecoded   atomic.Uint64
	FramesPublished atomic.Uint64
	NoFramePolls    atomic.Uint64
}

func (s *stats) Convert() Stats {
	return Stats{
		FramesDecoded:   s.FramesDecoded.Load(),
		FramesPublished: s.FramesPublished.Load(),
		NoFramePolls:    s.NoFramePolls.Load(),
	}
}
