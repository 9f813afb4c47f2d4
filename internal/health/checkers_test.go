package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionChecker(t *testing.T) {
	tests := []struct {
		name    string
		failed  bool
		wantErr bool
	}{
		{name: "healthy session", failed: false, wantErr: false},
		{name: "failed session", failed: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewSessionChecker(
				func() SessionStats { return SessionStats{State: "active"} },
				func() bool { return tt.failed },
			)
			assert.Equal(t, "session", checker.Name())

			err := checker.Check(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryChecker(t *testing.T) {
	t.Run("disabled with zero budget", func(t *testing.T) {
		checker := NewMemoryChecker(0)
		assert.NoError(t, checker.Check(context.Background()))
	})

	t.Run("generous budget passes", func(t *testing.T) {
		checker := NewMemoryChecker(1 << 40)
		assert.NoError(t, checker.Check(context.Background()))
	})

	t.Run("tiny budget fails", func(t *testing.T) {
		checker := NewMemoryChecker(1)
		assert.Error(t, checker.Check(context.Background()))
	})
}

func TestGoroutineChecker(t *testing.T) {
	t.Run("disabled with zero limit", func(t *testing.T) {
		checker := NewGoroutineChecker(0)
		assert.NoError(t, checker.Check(context.Background()))
	})

	t.Run("generous limit passes", func(t *testing.T) {
		checker := NewGoroutineChecker(1 << 20)
		assert.NoError(t, checker.Check(context.Background()))
	})

	t.Run("limit of one fails", func(t *testing.T) {
		checker := NewGoroutineChecker(1)
		assert.Error(t, checker.Check(context.Background()))
	})
}
