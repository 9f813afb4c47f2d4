package gpu

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrSchedulerClosed indicates work was submitted after Close.
var ErrSchedulerClosed = errors.New("gpu: scheduler closed")

// Scheduler decides where rendering work executes. Two configurations
// are supported: a single context shared by all streams (SharedScheduler)
// or one context per stream with fences ordering cross-context reads
// (DirectScheduler). Both must yield identical observable output order,
// which holds because the compositor submits work from a single worker.
type Scheduler interface {
	// Run executes task on the scheduler's context and returns its
	// error. It blocks until the task completes; ctx only bounds the
	// wait for a free context, never interrupts a running task.
	Run(ctx context.Context, task func() error) error

	// Close releases the scheduler's context. Pending Run calls fail
	// with ErrSchedulerClosed.
	Close()
}

type schedTask struct {
	fn    func() error
	reply chan error
}

// SharedScheduler runs every task on one dedicated goroutine pinned to
// an OS thread, the way a single shared GL context requires.
type SharedScheduler struct {
	tasks     chan schedTask
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSharedScheduler starts the context worker.
func NewSharedScheduler() *SharedScheduler {
	s := &SharedScheduler{
		tasks: make(chan schedTask),
		done:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *SharedScheduler) loop() {
	defer s.wg.Done()

	// A real rendering context is bound to the thread that created it.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case task := <-s.tasks:
			task.reply <- task.fn()
		case <-s.done:
			return
		}
	}
}

// Run implements Scheduler.
func (s *SharedScheduler) Run(ctx context.Context, task func() error) error {
	t := schedTask{fn: task, reply: make(chan error, 1)}

	select {
	case s.tasks <- t:
	case <-s.done:
		return ErrSchedulerClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once submitted the task runs to completion; the reply always
	// arrives, so waiting unconditionally cannot deadlock.
	return <-t.reply
}

// Close implements Scheduler.
func (s *SharedScheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// DirectScheduler executes tasks on the calling goroutine. This models
// the one-context-per-stream configuration: each producer rendered on
// its own context, and the fences attached to frames already order
// those writes against the blend that reads them.
type DirectScheduler struct{}

// Run implements Scheduler.
func (DirectScheduler) Run(ctx context.Context, task func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return task()
}

// Close implements Scheduler.
func (DirectScheduler) Close() {}
