package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zsiec/blend/internal/compositor"
	"github.com/zsiec/blend/internal/config"
	"github.com/zsiec/blend/internal/gpu"
	"github.com/zsiec/blend/internal/logger"
	"github.com/zsiec/blend/internal/metrics"
	"github.com/zsiec/blend/internal/render"
	"github.com/zsiec/blend/internal/source"
)

// session owns one compositing pipeline: the scheduler, the output
// texture pool, the compositor and the synthetic sources feeding it.
type session struct {
	comp    *compositor.Compositor
	sched   gpu.Scheduler
	pool    *gpu.Pool
	sources []*source.Generator
	log     logger.Logger

	started   time.Time
	outputs   atomic.Uint64
	failed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// newSession assembles a compositing session from configuration. Each
// configured demo source gets its own registered input stream, in
// order, so the first source is the reference stream.
func newSession(cfg *config.Config, log *logrus.Logger) (*session, error) {
	adapted := logger.NewLogrusAdapter(logrus.NewEntry(log))

	var sched gpu.Scheduler
	switch cfg.Compositor.Scheduler {
	case "direct":
		sched = gpu.DirectScheduler{}
	default:
		sched = gpu.NewSharedScheduler()
	}

	pool := gpu.NewPool(cfg.Compositor.OutputWidth, cfg.Compositor.OutputHeight,
		cfg.Compositor.TexturePoolSize, adapted)
	blender := render.NewOverlayBlender(pool)

	s := &session{
		sched:   sched,
		pool:    pool,
		log:     adapted.WithField("component", "session"),
		started: time.Now(),
		done:    make(chan struct{}),
	}

	s.comp = compositor.New(
		compositor.Config{OutputCapacity: cfg.Compositor.OutputCapacity},
		blender, sched, s.consumeOutput, s, adapted,
	)

	for _, src := range cfg.Demo.Sources {
		id, err := s.comp.RegisterInputStream()
		if err != nil {
			s.comp.Release()
			sched.Close()
			return nil, fmt.Errorf("registering stream for %q: %w", src.Name, err)
		}
		s.sources = append(s.sources, source.NewGenerator(source.Config{
			Name:      src.Name,
			StreamID:  id,
			Width:     src.Width,
			Height:    src.Height,
			FrameRate: src.FrameRate,
			Frames:    src.Frames,
			Pattern:   src.Pattern,
		}, s.comp, adapted))
	}

	metrics.SessionStarted()
	return s, nil
}

// run starts the sources and blocks until the session reaches terminal
// state or ctx is canceled.
func (s *session) run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, gen := range s.sources {
		wg.Add(1)
		go func(g *source.Generator) {
			defer wg.Done()
			if err := g.Run(ctx); err != nil {
				s.log.WithError(err).Warn("Source stopped early")
			}
		}(gen)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
	}
	wg.Wait()
}

// consumeOutput is the session's frame sink. The demo has no display,
// so frames are counted and handed straight back.
func (s *session) consumeOutput(frame *compositor.Frame, release compositor.ReleaseFunc) {
	s.outputs.Add(1)
	release()
}

// OnEnded implements compositor.Listener.
func (s *session) OnEnded() {
	s.log.WithField("outputs", s.outputs.Load()).Info("Session ended")
	metrics.SessionFinished(metrics.OutcomeEnded, time.Since(s.started).Seconds())
	close(s.done)
}

// OnError implements compositor.Listener.
func (s *session) OnError(err error) {
	s.failed.Store(true)
	s.log.WithError(err).Error("Session failed")
	metrics.SessionFinished(metrics.OutcomeFailed, time.Since(s.started).Seconds())
	close(s.done)
}

// stats supplies the HTTP stats endpoint.
func (s *session) stats() compositor.Stats {
	return s.comp.GetStats()
}

// healthy reports whether the session has not failed.
func (s *session) healthy() bool {
	return !s.failed.Load()
}

// close releases the session's resources. Safe to call after a clean
// end or a failure.
func (s *session) close() {
	s.closeOnce.Do(func() {
		terminal := false
		select {
		case <-s.done:
			terminal = true
		default:
		}

		s.comp.Release()
		s.sched.Close()

		if !terminal {
			metrics.SessionFinished(metrics.OutcomeReleased, time.Since(s.started).Seconds())
		}

		stats := s.pool.Stats()
		metrics.RecordPoolStats("output", stats.Idle, stats.Allocated, stats.Reused)
	})
}
