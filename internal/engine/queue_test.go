package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcher_FlushesAtSize(t *testing.T) {
	var flushed [][]int
	b := newBatcher(2, func(_ context.Context, items []int) error {
		flushed = append(flushed, append([]int(nil), items...))
		return nil
	}, nil)

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Add(ctx, i))
	}
	assert.Equal(t, 1, b.Pending())
	require.NoError(t, b.Flush(ctx))

	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, flushed)
	assert.Equal(t, 5, b.written)
	assert.Equal(t, 0, b.discarded)
	assert.Equal(t, 3, b.flushes)
}

func TestBatcher_FailedFlushDiscardsWholeBatchAndContinues(t *testing.T) {
	calls := 0
	var discarded []int
	b := newBatcher(2,
		func(_ context.Context, items []int) error {
			calls++
			if calls == 1 {
				return errors.New("UNIQUE constraint failed")
			}
			return nil
		},
		func(items []int, err error) {
			discarded = append(discarded, items...)
		})

	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		require.NoError(t, b.Add(ctx, i))
	}

	assert.Equal(t, []int{1, 2}, discarded)
	assert.Equal(t, 2, b.written)
	assert.Equal(t, 2, b.discarded)
}

func TestBatcher_FlushEmptyIsNoop(t *testing.T) {
	b := newBatcher(10, func(context.Context, []int) error {
		t.Fatal("flush must not be called")
		return nil
	}, nil)
	assert.NoError(t, b.Flush(context.Background()))
}

func TestBatcher_CancelledContextStops(t *testing.T) {
	b := newBatcher(1, func(context.Context, []int) error { return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Add(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.written)
}

func TestBatcher_NonPositiveSize(t *testing.T) {
	n := 0
	b := newBatcher(0, func(_ context.Context, items []int) error {
		n += len(items)
		return nil
	}, nil)

	require.NoError(t, b.Add(context.Background(), 1))
	assert.Equal(t, 1, n)
}
