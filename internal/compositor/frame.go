package compositor

import (
	"sync/atomic"

	"github.com/zsiec/blend/internal/gpu"
)

// ReleaseFunc hands a frame's texture back to its producer. Whoever
// owns the frame must call it exactly once.
type ReleaseFunc func()

// Frame is a single timestamped image with an explicit ownership
// contract: at any instant exactly one holder owns it, and ownership
// only moves by hand-off (producer to compositor, compositor to
// consumer for output frames). Fence must be signaled before the
// texture contents are read.
type Frame struct {
	Texture gpu.Texture

	// PTS is the presentation timestamp in microseconds. Per-stream
	// timestamps are non-decreasing; that is the producer's contract
	// and is not re-validated here.
	PTS int64

	// Fence is signaled once the producer's writes to Texture are
	// visible to other contexts.
	Fence *gpu.Fence

	release  ReleaseFunc
	released atomic.Bool
}

// NewFrame builds a frame. A nil fence is treated as already signaled,
// and a nil release means the producer keeps no interest in the
// texture.
func NewFrame(tex gpu.Texture, pts int64, fence *gpu.Fence, release ReleaseFunc) *Frame {
	if fence == nil {
		fence = gpu.SignaledFence()
	}
	return &Frame{
		Texture: tex,
		PTS:     pts,
		Fence:   fence,
		release: release,
	}
}

// Width returns the texture width in pixels.
func (f *Frame) Width() int {
	return f.Texture.Width()
}

// Height returns the texture height in pixels.
func (f *Frame) Height() int {
	return f.Texture.Height()
}

// Release returns the texture to its producer. Only the first call has
// an effect; teardown paths may release a frame that another path
// already handed back.
func (f *Frame) Release() {
	if f.released.CompareAndSwap(false, true) && f.release != nil {
		f.release()
	}
}

// Released reports whether Release has been called.
func (f *Frame) Released() bool {
	return f.released.Load()
}
