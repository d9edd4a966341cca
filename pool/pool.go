// Package pool recycles libav objects (packets, frames) between reads.
package pool

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

// Pool is a sync.Pool of *T. Objects that are dropped by the pool are
// released through freeFunc by a finalizer.
type Pool[T any] struct {
	pool      sync.Pool
	resetFunc func(*T)

	allocated atomic.Uint64
	reused    atomic.Uint64
}

func NewPool[T any](
	allocFunc func() *T,
	resetFunc func(*T),
	freeFunc func(*T),
) *Pool[T] {
	p := &Pool[T]{
		resetFunc: resetFunc,
	}
	p.pool.New = func() any {
		p.allocated.Inc()
		v := allocFunc()
		runtime.SetFinalizer(v, func(v *T) {
			freeFunc(v)
		})
		return v
	}
	return p
}

func (p *Pool[T]) Get() *T {
	return p.pool.Get().(*T)
}

// Put resets the items and makes them available to Get.
func (p *Pool[T]) Put(items ...*T) {
	for _, item := range items {
		if item == nil {
			continue
		}
		p.resetFunc(item)
		p.reused.Inc()
		p.pool.Put(item)
	}
}

type Stats struct {
	Allocated uint64
	Returned  uint64
}

func (p *Pool[T]) Stats() Stats {
	return Stats{
		Allocated: p.allocated.Load(),
		Returned:  p.reused.Load(),
	}
}
