package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherPreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			return i * 2, nil
		}
	}
	results, err := Gather(context.Background(), 4, tasks)
	require.NoError(t, err)
	for i, result := range results {
		assert.Equal(t, i*2, result)
	}
}

func TestGatherFirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "ok", nil },
		func(ctx context.Context) (string, error) { return "", boom },
	}
	_, err := Gather(context.Background(), 0, tasks)
	assert.ErrorIs(t, err, boom)
}

func TestGatherRespectsLimit(t *testing.T) {
	var inflight, peak atomic.Int32
	tasks := make([]Task[struct{}], 32)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			inflight.Add(-1)
			return struct{}{}, nil
		}
	}
	_, err := Gather(context.Background(), 3, tasks)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestGatherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		},
	}
	_, err := Gather(ctx, 1, tasks)
	assert.ErrorIs(t, err, context.Canceled)
}
