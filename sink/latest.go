// Package sink provides the hand-over point between the decode worker and
// the consumers of its frames.
package sink

import (
	"context"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Latest is a single-slot mailbox: a publisher never waits, a new value
// replaces the previous one even if nobody has read it yet (and such an
// overwrite is counted as a drop).
type Latest[T any] struct {
	locker  xsync.Mutex
	value   T
	seq     uint64
	readSeq uint64

	changeChan *chan struct{}
	published  atomic.Uint64
	dropped    atomic.Uint64
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{
		changeChan: ptr(make(chan struct{})),
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Publish stores the value and wakes up the waiting readers.
func (l *Latest[T]) Publish(ctx context.Context, v T) {
	l.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if l.seq > l.readSeq {
			l.dropped.Inc()
		}
		l.value = v
		l.seq++
		l.published.Inc()
	})
	close(*xatomic.SwapPointer(&l.changeChan, ptr(make(chan struct{}))))
}

// Load returns the last value and its sequence number (zero if nothing
// was published yet).
func (l *Latest[T]) Load(ctx context.Context) (T, uint64) {
	var (
		v   T
		seq uint64
	)
	l.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		v, seq = l.value, l.seq
		l.readSeq = l.seq
	})
	return v, seq
}

// Next waits for a value newer than afterSeq.
func (l *Latest[T]) Next(ctx context.Context, afterSeq uint64) (T, uint64, error) {
	for {
		ch := l.ChangeChan()
		v, seq := l.Load(ctx)
		if seq > afterSeq {
			return v, seq, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, afterSeq, ctx.Err()
		case <-ch:
		}
	}
}

// ChangeChan is closed on the next Publish.
func (l *Latest[T]) ChangeChan() <-chan struct{} {
	return *xatomic.LoadPointer(&l.changeChan)
}

type Stats struct {
	Published uint64
	Dropped   uint64
}

func (l *Latest[T]) Stats() Stats {
	return Stats{
		Published: l.published.Load(),
		Dropped:   l.dropped.Load(),
	}
}
