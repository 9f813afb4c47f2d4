package gpu

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedScheduler_RunsTasksInOrder(t *testing.T) {
	s := NewSharedScheduler()
	defer s.Close()

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		err := s.Run(context.Background(), func() error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestSharedScheduler_PropagatesTaskError(t *testing.T) {
	s := NewSharedScheduler()
	defer s.Close()

	wantErr := errors.New("blend failed")
	err := s.Run(context.Background(), func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestSharedScheduler_RunAfterClose(t *testing.T) {
	s := NewSharedScheduler()
	s.Close()

	err := s.Run(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestSharedScheduler_ConcurrentSubmitters(t *testing.T) {
	s := NewSharedScheduler()
	defer s.Close()

	// Tasks from many goroutines must never observe concurrent
	// execution on the shared context.
	var inTask bool
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Run(context.Background(), func() error {
					if inTask {
						t.Error("two tasks ran concurrently")
					}
					inTask = true
					inTask = false
					return nil
				})
			}
		}()
	}
	wg.Wait()
}

func TestDirectScheduler(t *testing.T) {
	s := DirectScheduler{}

	ran := false
	require.NoError(t, s.Run(context.Background(), func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
