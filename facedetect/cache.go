package facedetect

import (
	"context"
	"fmt"

	"github.com/Hugo-Victorr/Streaming-RTSP/frame"
	"github.com/Hugo-Victorr/Streaming-RTSP/logger"
)

const DefaultDetectInterval = 5

// Cache throttles a Detector: it is consulted only on every Interval-th
// frame, the last result is served in between.
//
// Cache is not safe for concurrent use; it belongs to the decode worker.
type Cache struct {
	Detector Detector
	Interval uint64

	counter     uint64
	boxes       []Box
	invocations uint64
}

func NewCache(detector Detector, interval uint64) *Cache {
	if interval == 0 {
		interval = 1
	}
	return &Cache{
		Detector: detector,
		Interval: interval,
	}
}

func (c *Cache) String() string {
	return fmt.Sprintf("Cache(%v, every %d)", c.Detector, c.Interval)
}

// Boxes returns the faces for the frame, running the detector if it is
// due. On a detector error the previous boxes are kept.
func (c *Cache) Boxes(ctx context.Context, f *frame.Frame) ([]Box, error) {
	c.counter++
	interval := c.Interval
	if interval == 0 {
		interval = 1
	}
	if c.counter%interval != 0 {
		return c.boxes, nil
	}

	c.invocations++
	boxes, err := c.Detector.Detect(ctx, f)
	if err != nil {
		return c.boxes, fmt.Errorf("unable to detect faces: %w", err)
	}
	logger.Tracef(ctx, "detected %d faces", len(boxes))
	c.boxes = boxes
	return c.boxes, nil
}

// Reset forgets the last result and restarts the frame counter.
func (c *Cache) Reset() {
	c.counter = 0
	c.boxes = nil
}

// Invocations returns how many times the detector was consulted.
func (c *Cache) Invocations() uint64 {
	return c.invocations
}
