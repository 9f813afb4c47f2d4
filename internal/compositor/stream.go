package compositor

// inputStream is one registered source's pending-frame queue. All
// fields are guarded by the owning Compositor's mutex.
type inputStream struct {
	id      int
	pending []*Frame
	ended   bool

	// held is the most recently matched frame of a non-reference
	// stream. It is retained so the stream can keep contributing its
	// last frame after it ends (the substitute policy), and is only
	// released once a newer frame supersedes it or the session tears
	// down. Always nil for the reference stream.
	held *Frame

	// Counters for stats and logging.
	queued  uint64
	matched uint64
	dropped uint64
}

func newInputStream(id int) *inputStream {
	return &inputStream{id: id}
}

// head returns the oldest pending frame, or nil.
func (s *inputStream) head() *Frame {
	if len(s.pending) == 0 {
		return nil
	}
	return s.pending[0]
}

// pop removes and returns the oldest pending frame.
func (s *inputStream) pop() *Frame {
	f := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return f
}

// push appends an arriving frame.
func (s *inputStream) push(f *Frame) {
	s.pending = append(s.pending, f)
	s.queued++
}
