package compositor

import (
	"context"
	"sync"
	"sync/atomic"
)

// FrameOutputFunc receives composited frames in presentation order. The
// consumer owns the frame until it calls release, and must call release
// exactly once; capacity for the next delivery is not freed before
// then. The callback runs on the compose worker and must not call back
// into Release.
type FrameOutputFunc func(frame *Frame, release ReleaseFunc)

// outputSink is the backpressure point between compositing and the
// downstream consumer. It holds a fixed number of capacity tokens; a
// delivery takes one and the consumer's release returns it.
type outputSink struct {
	capacity int
	tokens   chan struct{}
	output   FrameOutputFunc

	delivered atomic.Uint64
}

func newOutputSink(capacity int, output FrameOutputFunc) *outputSink {
	s := &outputSink{
		capacity: capacity,
		tokens:   make(chan struct{}, capacity),
		output:   output,
	}
	for i := 0; i < capacity; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

// acquire blocks until a capacity token is free or ctx is canceled.
func (s *outputSink) acquire(ctx context.Context) error {
	select {
	case <-s.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver hands a composited frame downstream. The caller must hold a
// token from acquire; it is returned when the consumer releases.
func (s *outputSink) deliver(frame *Frame) {
	s.delivered.Add(1)
	outputsInFlight.Inc()

	var once sync.Once
	release := func() {
		once.Do(func() {
			frame.Release()
			outputsInFlight.Dec()
			s.tokens <- struct{}{}
		})
	}

	s.output(frame, release)
}

// inFlight reports how many delivered frames the consumer still holds.
func (s *outputSink) inFlight() int {
	return s.capacity - len(s.tokens)
}
