package compositor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates an API call that is illegal in the
	// compositor's current state, such as queueing to an ended stream
	// or any mutation after terminal state.
	ErrInvalidState = errors.New("compositor: invalid state")

	// ErrInvalidStream indicates an unknown stream identifier.
	ErrInvalidStream = errors.New("compositor: unknown stream")

	// ErrNilFrame indicates a nil frame or a frame without a texture.
	ErrNilFrame = errors.New("compositor: nil frame")
)

// StateError carries the operation and state of an invalid-state
// rejection. It matches ErrInvalidState under errors.Is.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("compositor: %s not allowed in state %s", e.Op, e.State)
}

// Is reports ErrInvalidState as this error's kind.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// StreamError reports an operation against a stream identifier that was
// never registered. It matches ErrInvalidStream under errors.Is.
type StreamError struct {
	Op       string
	StreamID int
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("compositor: %s: unknown stream %d", e.Op, e.StreamID)
}

// Is reports ErrInvalidStream as this error's kind.
func (e *StreamError) Is(target error) bool {
	return target == ErrInvalidStream
}

// CompositeError wraps an unrecoverable failure while blending a
// matched set. It is surfaced exactly once through Listener.OnError.
type CompositeError struct {
	PTS int64 // presentation timestamp of the failed set, microseconds
	Err error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("compositor: compositing frame at %dus failed: %v", e.PTS, e.Err)
}

// Unwrap returns the underlying blend failure.
func (e *CompositeError) Unwrap() error {
	return e.Err
}
