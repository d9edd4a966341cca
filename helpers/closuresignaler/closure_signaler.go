// Package closuresignaler provides a close-once signal that any number of
// goroutines can select on.
package closuresignaler

import (
	"context"
	"sync"

	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
)

type ClosureSignaler struct {
	closeOnce sync.Once
	c         chan struct{}
}

func New() *ClosureSignaler {
	return &ClosureSignaler{
		c: make(chan struct{}),
	}
}

// CloseChan is closed once Close was called.
func (c *ClosureSignaler) CloseChan() <-chan struct{} {
	return c.c
}

// Close reports whether this call was the one that actually closed
// the signal; repeated calls are no-ops returning false.
func (c *ClosureSignaler) Close(ctx context.Context) bool {
	logger.Tracef(ctx, "Close")
	defer func() { logger.Tracef(ctx, "/Close") }()
	closed := false
	c.closeOnce.Do(func() {
		close(c.c)
		closed = true
	})
	return closed
}

func (c *ClosureSignaler) IsClosed() bool {
	select {
	case <-c.c:
		return true
	default:
		return false
	}
}
