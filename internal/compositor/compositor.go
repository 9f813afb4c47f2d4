package compositor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/blend/internal/gpu"
	"github.com/zsiec/blend/internal/logger"
)

// Listener receives the session's terminal events. At most one of the
// two callbacks fires, exactly once, after which the compositor is
// terminal and every mutating call fails with ErrInvalidState.
type Listener interface {
	// OnEnded fires once every stream has ended and every matchable
	// frame has been composited and delivered.
	OnEnded()

	// OnError fires once on an unrecoverable compositing failure. All
	// retained frames have been released by the time it is invoked.
	OnError(err error)
}

// Blender produces exactly one output frame from a matched set of input
// frames. Inputs are ordered by stream registration and are borrowed:
// the blender must not retain or release them. The returned frame's
// release obligation must return its texture to the blender's own
// allocator.
type Blender interface {
	Composite(ctx context.Context, inputs []*Frame, pts int64) (*Frame, error)
}

// Config holds compositor session settings.
type Config struct {
	// OutputCapacity is the number of composited frames that may be in
	// flight downstream at once. It also throttles matching: no new
	// composable set is formed while that many are already pending or
	// held by the consumer. Defaults to 1.
	OutputCapacity int
}

type state int

const (
	stateActive state = iota
	stateDraining
	stateTerminal
)

func (s state) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateDraining:
		return "draining"
	default:
		return "terminal"
	}
}

// composableSet is one frame per registered stream, all matched to the
// reference timestamp. frames are borrowed views; release lists the
// frames whose release obligation this set carries once the blend has
// consumed their contents.
type composableSet struct {
	pts     int64
	frames  []*Frame
	release []*Frame
}

// Compositor merges the frames of N independently paced input streams
// into one ordered stream of composited output frames. Producers may
// call QueueInputFrame and SignalEndOfStream concurrently from any
// goroutine; all state mutation is serialized on one mutex and all
// blending happens on a single compose worker, so matching and
// compositing never run concurrently with themselves or each other.
type Compositor struct {
	sessionID string
	cfg       Config
	blender   Blender
	sched     gpu.Scheduler
	listener  Listener
	sink      *outputSink

	mu       sync.Mutex
	cond     *sync.Cond
	streams  []*inputStream
	st       state
	pending  []*composableSet
	inflight *composableSet

	// retired holds superseded frames awaiting release. A frame that
	// was just matched is both a stream's held frame and an input of a
	// pending set, so a superseding frame cannot release it directly;
	// it is instead attached to the next set created, which completes
	// after every set that could still borrow it.
	retired []*Frame

	composited    uint64
	lastOutputPTS int64

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	releaseOnce sync.Once

	logger logger.Logger
	drops  *logger.SampledLogger
}

// New creates a compositing session and starts its compose worker. A
// nil scheduler runs blends directly on the worker; a nil logger logs
// through a default logrus instance.
func New(cfg Config, blender Blender, sched gpu.Scheduler, output FrameOutputFunc, listener Listener, log logger.Logger) *Compositor {
	if cfg.OutputCapacity <= 0 {
		cfg.OutputCapacity = 1
	}
	if sched == nil {
		sched = gpu.DirectScheduler{}
	}
	if log == nil {
		log = logger.NewLogrusAdapter(logrus.NewEntry(logrus.New()))
	}

	sessionID := uuid.New().String()
	log = log.WithFields(map[string]interface{}{
		"component":  "compositor",
		"session_id": sessionID,
	})

	c := &Compositor{
		sessionID:     sessionID,
		cfg:           cfg,
		blender:       blender,
		sched:         sched,
		listener:      listener,
		sink:          newOutputSink(cfg.OutputCapacity, output),
		lastOutputPTS: -1,
		logger:        log,
		drops:         logger.NewCompositorLogger(log),
	}
	c.cond = sync.NewCond(&c.mu)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.composeLoop()

	c.logger.WithField("output_capacity", cfg.OutputCapacity).Info("Compositing session started")
	return c
}

// RegisterInputStream allocates a fresh stream identifier. The first
// registered stream becomes the reference stream that drives output
// timestamps.
func (c *Compositor) RegisterInputStream() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st != stateActive {
		return 0, &StateError{Op: "register input stream", State: c.st.String()}
	}

	id := len(c.streams)
	c.streams = append(c.streams, newInputStream(id))
	streamsRegistered.WithLabelValues(c.sessionID).Set(float64(len(c.streams)))

	c.logger.WithField("stream_id", id).Info("Registered input stream")
	return id, nil
}

// QueueInputFrame appends a frame to the named stream and re-evaluates
// matching. On error the compositor has not taken ownership and the
// caller keeps the frame's release obligation.
func (c *Compositor) QueueInputFrame(streamID int, frame *Frame) error {
	if frame == nil || frame.Texture == nil {
		return ErrNilFrame
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st != stateActive {
		return &StateError{Op: "queue input frame", State: c.st.String()}
	}
	if streamID < 0 || streamID >= len(c.streams) {
		return &StreamError{Op: "queue input frame", StreamID: streamID}
	}

	stream := c.streams[streamID]
	if stream.ended {
		return &StateError{Op: "queue input frame", State: "ended"}
	}

	stream.push(frame)
	framesQueuedTotal.WithLabelValues(c.sessionID, strconv.Itoa(streamID)).Inc()

	c.evaluateLocked()
	return nil
}

// SignalEndOfStream marks the stream as ended. Signaling twice is a
// contract violation. An ended stream with an empty buffer can unblock
// a composable set that was waiting on it.
func (c *Compositor) SignalEndOfStream(streamID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.st != stateActive {
		return &StateError{Op: "signal end of stream", State: c.st.String()}
	}
	if streamID < 0 || streamID >= len(c.streams) {
		return &StreamError{Op: "signal end of stream", StreamID: streamID}
	}

	stream := c.streams[streamID]
	if stream.ended {
		return &StateError{Op: "signal end of stream", State: "ended"}
	}
	stream.ended = true

	c.logger.WithFields(map[string]interface{}{
		"stream_id": streamID,
		"pending":   len(stream.pending),
	}).Info("Input stream ended")

	c.evaluateLocked()
	return nil
}

// Release tears the session down: it unblocks any waits, stops the
// compose worker and releases every retained frame. No Listener
// callback fires on account of Release itself. Safe to call once,
// including mid-error.
func (c *Compositor) Release() {
	c.releaseOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		c.st = stateTerminal
		c.cond.Broadcast()
		c.mu.Unlock()

		c.wg.Wait()

		c.mu.Lock()
		c.teardownLocked(dropReasonReleased)
		c.mu.Unlock()

		c.logger.Info("Compositing session released")
	})
}

// evaluateLocked advances matching as far as the current buffers and
// the pending budget allow. It is idempotent: with no new input it
// neither produces duplicate sets nor errs. Caller holds c.mu.
func (c *Compositor) evaluateLocked() {
	if len(c.streams) == 0 {
		return
	}

	for c.st == stateActive && len(c.pending) < c.cfg.OutputCapacity {
		ref := c.streams[0]
		if ref.head() == nil {
			if ref.ended {
				c.maybeDrainLocked()
			}
			return
		}

		set, refDropped := c.tryMatchLocked(ref.head().PTS)
		if set != nil {
			c.pending = append(c.pending, set)
			c.cond.Broadcast()
			continue
		}
		if !refDropped {
			// A stream is behind and still running: wait for input.
			return
		}
		// Reference frame was unmatchable and dropped; retry with the
		// next one.
	}

	// The pending budget is exhausted; the compose worker re-evaluates
	// after each set completes. This is where consumer backpressure
	// throttles matching.
}

// tryMatchLocked attempts to build a composable set for the reference
// timestamp pts. It returns the set on success. When the set can never
// complete because an ended stream cannot supply pts, the reference
// frame is dropped and refDropped is true. Caller holds c.mu.
func (c *Compositor) tryMatchLocked(pts int64) (set *composableSet, refDropped bool) {
	frames := make([]*Frame, len(c.streams))

	for i, s := range c.streams {
		if i == 0 {
			frames[0] = s.head()
			continue
		}

		// Frames behind the reference timestamp can never match any
		// current or future reference frame. They are dropped from
		// matching but retired into held, so the substitute policy
		// still sees the last frame the stream ever produced.
		for s.head() != nil && s.head().PTS < pts {
			c.retireLocked(s, s.pop())
		}

		head := s.head()
		switch {
		case head != nil && head.PTS == pts:
			frames[i] = head
		case head != nil && !s.ended:
			// head.PTS > pts: it may match a later reference frame,
			// but this set must wait for this stream to catch up.
			return nil, false
		case head == nil && !s.ended:
			return nil, false
		case head == nil && s.held != nil:
			// Ended and empty: the stream keeps contributing the last
			// frame it ever produced.
			frames[i] = s.held
		default:
			// The stream has ended and cannot supply pts: either its
			// remaining frames are all ahead (per-stream timestamps
			// are non-decreasing) or it never produced one. Nothing
			// can complete this set, drop the reference frame.
			ref := c.streams[0]
			c.dropLocked(ref, ref.pop(), dropReasonNoMatch)
			return nil, true
		}
	}

	// Commit: consume the matched heads and collect the release
	// obligations this set carries.
	set = &composableSet{pts: pts, frames: frames}
	for i, s := range c.streams {
		label := strconv.Itoa(s.id)

		if i == 0 {
			f := s.pop()
			s.matched++
			framesMatchedTotal.WithLabelValues(c.sessionID, label).Inc()
			// Reference frames are never substituted; release right
			// after the blend consumes them.
			set.release = append(set.release, f)
			continue
		}

		if frames[i] != s.held {
			f := s.pop()
			s.matched++
			framesMatchedTotal.WithLabelValues(c.sessionID, label).Inc()
			c.setHeldLocked(s, f)
		}
	}

	// Sets complete in FIFO order, so this set's completion is the
	// earliest point at which the superseded frames are safe to hand
	// back.
	set.release = append(set.release, c.retired...)
	c.retired = nil

	return set, false
}

// maybeDrainLocked transitions to draining once the reference stream is
// exhausted and every stream has ended. Frames still queued on other
// streams can never match and are flushed. Caller holds c.mu.
func (c *Compositor) maybeDrainLocked() {
	if c.st != stateActive {
		return
	}

	ref := c.streams[0]
	if !ref.ended || ref.head() != nil {
		return
	}
	for _, s := range c.streams {
		if !s.ended {
			return
		}
	}

	for _, s := range c.streams[1:] {
		for s.head() != nil {
			c.dropLocked(s, s.pop(), dropReasonFlushed)
		}
	}

	c.st = stateDraining
	c.cond.Broadcast()
}

// setHeldLocked makes f the stream's most recent frame. The superseded
// held frame moves to the retired list for deferred release. Caller
// holds c.mu.
func (c *Compositor) setHeldLocked(s *inputStream, f *Frame) {
	if s.held != nil {
		c.retired = append(c.retired, s.held)
	}
	s.held = f
}

// retireLocked removes a frame that arrived behind the reference
// timestamp from matching. It is kept as the stream's held frame rather
// than released, so an ended stream still substitutes it.
func (c *Compositor) retireLocked(s *inputStream, f *Frame) {
	c.setHeldLocked(s, f)
	s.dropped++
	framesDroppedTotal.WithLabelValues(c.sessionID, strconv.Itoa(s.id), dropReasonLate).Inc()
	c.drops.DebugWithCategory(logger.CategoryFrameDrop, "Input frame behind reference", map[string]interface{}{
		"stream_id": s.id,
		"pts_us":    f.PTS,
		"reason":    dropReasonLate,
	})
}

// dropLocked releases a frame that will never be composited.
func (c *Compositor) dropLocked(s *inputStream, f *Frame, reason string) {
	f.Release()
	s.dropped++
	framesDroppedTotal.WithLabelValues(c.sessionID, strconv.Itoa(s.id), reason).Inc()
	c.drops.DebugWithCategory(logger.CategoryFrameDrop, "Dropped input frame", map[string]interface{}{
		"stream_id": s.id,
		"pts_us":    f.PTS,
		"reason":    reason,
	})
}

// composeLoop is the single worker that blends matched sets and
// delivers them downstream in match order.
func (c *Compositor) composeLoop() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		for c.st == stateActive && len(c.pending) == 0 {
			c.cond.Wait()
		}
		if c.st == stateTerminal {
			c.mu.Unlock()
			return
		}
		if len(c.pending) == 0 {
			// Draining with nothing left to blend: the session is done.
			c.mu.Unlock()
			c.finish()
			return
		}
		set := c.pending[0]
		c.pending = c.pending[1:]
		c.inflight = set
		c.mu.Unlock()

		err := c.compose(set)

		if err != nil {
			if c.ctx.Err() != nil {
				// Shutdown via Release: teardown owns the cleanup of
				// the in-flight set.
				return
			}
			c.fail(err)
			return
		}

		c.mu.Lock()
		c.inflight = nil
		if c.st != stateTerminal {
			c.evaluateLocked()
		}
		c.mu.Unlock()
	}
}

// compose blends one matched set and delivers the result. Input frames
// whose obligation the set carries are released once the blend has
// consumed their contents.
func (c *Compositor) compose(set *composableSet) error {
	// GPU correctness: the producers' writes must be visible before the
	// blend reads any input texture.
	for _, f := range set.frames {
		if err := f.Fence.Wait(c.ctx); err != nil {
			return err
		}
	}

	var out *Frame
	start := time.Now()
	err := c.sched.Run(c.ctx, func() error {
		var blendErr error
		out, blendErr = c.blender.Composite(c.ctx, set.frames, set.pts)
		return blendErr
	})
	blendDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return &CompositeError{PTS: set.pts, Err: err}
	}
	if out == nil {
		return &CompositeError{PTS: set.pts, Err: ErrNilFrame}
	}

	// Inputs are consumed; hand the carried obligations back.
	for _, f := range set.release {
		f.Release()
	}
	set.release = nil

	if err := c.sink.acquire(c.ctx); err != nil {
		out.Release()
		return err
	}
	c.sink.deliver(out)

	c.mu.Lock()
	c.composited++
	c.lastOutputPTS = set.pts
	c.mu.Unlock()
	framesCompositedTotal.WithLabelValues(c.sessionID).Inc()

	return nil
}

// finish fires OnEnded after a clean drain. Runs on the compose worker.
func (c *Compositor) finish() {
	c.mu.Lock()
	if c.st != stateDraining {
		c.mu.Unlock()
		return
	}
	c.st = stateTerminal
	// No set can borrow held or retired frames anymore.
	for _, s := range c.streams {
		if s.held != nil {
			s.held.Release()
			s.held = nil
		}
	}
	for _, f := range c.retired {
		f.Release()
	}
	c.retired = nil
	composited := c.composited
	c.cond.Broadcast()
	c.mu.Unlock()

	streamsRegistered.WithLabelValues(c.sessionID).Set(0)
	c.logger.WithField("frames_composited", composited).Info("Compositing session ended")

	if c.listener != nil {
		c.listener.OnEnded()
	}
}

// fail reports an unrecoverable compositing failure. Runs on the
// compose worker; releases everything before surfacing the error.
func (c *Compositor) fail(err error) {
	c.cancel()

	c.mu.Lock()
	if c.st == stateTerminal {
		// Release already tore the session down; the error loses the
		// race and is not surfaced.
		c.mu.Unlock()
		return
	}
	c.teardownLocked(dropReasonReleased)
	c.mu.Unlock()

	compositeFailuresTotal.WithLabelValues(c.sessionID).Inc()
	c.logger.WithError(err).Error("Compositing failed")

	if c.listener != nil {
		c.listener.OnError(err)
	}
}

// teardownLocked releases every retained frame and enters terminal
// state. Idempotent. Caller holds c.mu; the compose worker must not be
// touching frames (it has exited or is running teardown itself).
func (c *Compositor) teardownLocked(reason string) {
	for _, s := range c.streams {
		for s.head() != nil {
			c.dropLocked(s, s.pop(), reason)
		}
		if s.held != nil {
			s.held.Release()
			s.held = nil
		}
	}

	for _, set := range c.pending {
		for _, f := range set.release {
			f.Release()
		}
	}
	c.pending = nil

	if c.inflight != nil {
		for _, f := range c.inflight.release {
			f.Release()
		}
		c.inflight = nil
	}

	for _, f := range c.retired {
		f.Release()
	}
	c.retired = nil

	c.st = stateTerminal
	c.cond.Broadcast()
	streamsRegistered.WithLabelValues(c.sessionID).Set(0)
}

// SessionID returns the unique identifier of this compositing session.
func (c *Compositor) SessionID() string {
	return c.sessionID
}

// StreamStats is a per-stream counter snapshot.
type StreamStats struct {
	ID      int    `json:"id"`
	Queued  uint64 `json:"queued"`
	Matched uint64 `json:"matched"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
	Ended   bool   `json:"ended"`
}

// Stats is a point-in-time snapshot of the session.
type Stats struct {
	SessionID     string        `json:"session_id"`
	State         string        `json:"state"`
	Streams       []StreamStats `json:"streams"`
	Composited    uint64        `json:"composited"`
	LastOutputPTS int64         `json:"last_output_pts_us"` // -1 before first output
	PendingSets   int           `json:"pending_sets"`
	InFlight      int           `json:"in_flight"`
}

// GetStats returns a snapshot of session statistics.
func (c *Compositor) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		SessionID:     c.sessionID,
		State:         c.st.String(),
		Composited:    c.composited,
		LastOutputPTS: c.lastOutputPTS,
		PendingSets:   len(c.pending),
		InFlight:      c.sink.inFlight(),
	}
	for _, s := range c.streams {
		stats.Streams = append(stats.Streams, StreamStats{
			ID:      s.id,
			Queued:  s.queued,
			Matched: s.matched,
			Dropped: s.dropped,
			Pending: len(s.pending),
			Ended:   s.ended,
		})
	}
	return stats
}
