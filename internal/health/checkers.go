package health

import (
	"context"
	"fmt"
	"runtime"
)

// SessionStats is the subset of compositor state the session checker
// inspects.
type SessionStats struct {
	State       string
	PendingSets int
	InFlight    int
}

// SessionChecker reports the compositing session's state. A session
// that reached terminal state through an error makes the service
// unhealthy; a cleanly ended session stays healthy.
type SessionChecker struct {
	stats  func() SessionStats
	failed func() bool
}

// NewSessionChecker creates a session health checker. stats supplies a
// snapshot; failed reports whether the session terminated on an error.
func NewSessionChecker(stats func() SessionStats, failed func() bool) *SessionChecker {
	return &SessionChecker{stats: stats, failed: failed}
}

// Name returns the name of the checker.
func (c *SessionChecker) Name() string {
	return "session"
}

// Check performs the session health check.
func (c *SessionChecker) Check(ctx context.Context) error {
	if c.failed() {
		return fmt.Errorf("compositing session failed")
	}
	return nil
}

// MemoryChecker fails when the Go heap exceeds a fixed budget, the
// early warning for a texture or frame leak.
type MemoryChecker struct {
	maxHeapBytes uint64
}

// NewMemoryChecker creates a memory checker with the given heap budget
// in bytes. A budget of zero disables the check.
func NewMemoryChecker(maxHeapBytes uint64) *MemoryChecker {
	return &MemoryChecker{maxHeapBytes: maxHeapBytes}
}

// Name returns the name of the checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check performs the memory check.
func (m *MemoryChecker) Check(ctx context.Context) error {
	if m.maxHeapBytes == 0 {
		return nil
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.HeapAlloc > m.maxHeapBytes {
		return fmt.Errorf("heap usage %d bytes exceeds budget %d bytes", stats.HeapAlloc, m.maxHeapBytes)
	}
	return nil
}

// GoroutineChecker fails when the process runs more goroutines than
// expected, catching leaked producers or compose workers.
type GoroutineChecker struct {
	max int
}

// NewGoroutineChecker creates a goroutine count checker. A max of zero
// disables the check.
func NewGoroutineChecker(max int) *GoroutineChecker {
	return &GoroutineChecker{max: max}
}

// Name returns the name of the checker.
func (g *GoroutineChecker) Name() string {
	return "goroutines"
}

// Check performs the goroutine count check.
func (g *GoroutineChecker) Check(ctx context.Context) error {
	if g.max == 0 {
		return nil
	}
	if n := runtime.NumGoroutine(); n > g.max {
		return fmt.Errorf("%d goroutines exceeds limit %d", n, g.max)
	}
	return nil
}
