package gpu

import (
	"context"
	"sync"
)

// Fence is a one-shot completion signal. A producer signals it once its
// writes to a texture are visible; consumers must wait on it before
// reading the texture. It models a GPU sync object in host memory.
type Fence struct {
	done chan struct{}
	once sync.Once
}

// NewFence creates an unsignaled fence.
func NewFence() *Fence {
	return &Fence{done: make(chan struct{})}
}

// SignaledFence creates a fence that is already signaled. Useful when
// the producing work completed synchronously.
func SignaledFence() *Fence {
	f := NewFence()
	f.Signal()
	return f
}

// Signal marks the fence as complete. Safe to call more than once;
// only the first call has an effect.
func (f *Fence) Signal() {
	f.once.Do(func() {
		close(f.done)
	})
}

// Wait blocks until the fence is signaled or the context is canceled.
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signaled reports whether the fence has fired without blocking.
func (f *Fence) Signaled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
