package pool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForRangeCoversAll(t *testing.T) {
	wp := New(4)
	defer wp.Close()

	const n = 100000
	marks := make([]atomic.Bool, n)
	wp.ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			require.False(t, marks[i].Swap(true), "index %d visited twice", i)
		}
	})

	for i := range marks {
		require.True(t, marks[i].Load(), "index %d not visited", i)
	}
}

func TestForRangeSmallRunsInline(t *testing.T) {
	wp := New(4)
	defer wp.Close()

	var calls atomic.Int32
	wp.ForRange(10, func(lo, hi int) {
		calls.Add(1)
		require.Equal(t, 0, lo)
		require.Equal(t, 10, hi)
	})
	require.Equal(t, int32(1), calls.Load())
}

func TestForRangeNilPool(t *testing.T) {
	var wp *WorkerPool
	done := false
	wp.ForRange(5, func(lo, hi int) { done = true })
	require.True(t, done)
}

func TestCloseIdempotent(t *testing.T) {
	wp := New(2)
	wp.Close()
	wp.Close()
}

func TestForRangeAfterClose(t *testing.T) {
	wp := New(2)
	wp.Close()

	var total atomic.Int64
	wp.ForRange(100000, func(lo, hi int) {
		total.Add(int64(hi - lo))
	})
	require.Equal(t, int64(100000), total.Load())
}
