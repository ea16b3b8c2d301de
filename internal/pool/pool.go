// Package pool provides a fixed pool of goroutines for word-range parallel
// bit-plane updates. A long-lived pool avoids spawning goroutines per gate
// when conjugating very wide frame ensembles.
package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool manages a fixed set of worker goroutines.
type WorkerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
}

// New creates a pool with numWorkers goroutines. numWorkers <= 0 defaults to
// GOMAXPROCS.
func New(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int { return wp.numWorkers }

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain queued work so in-flight ForRange calls can finish.
			for {
				select {
				case task := <-wp.workCh:
					task()
				default:
					return
				}
			}
		case task, ok := <-wp.workCh:
			if !ok {
				return
			}
			task()
		}
	}
}

// ForRange splits [0, n) into contiguous chunks and runs fn(lo, hi) on the
// pool, blocking until every chunk is done. Small ranges run inline on the
// calling goroutine since the dispatch overhead would dominate.
func (wp *WorkerPool) ForRange(n int, fn func(lo, hi int)) {
	const minChunk = 1024

	if wp == nil || wp.closed.Load() || n <= minChunk {
		fn(0, n)
		return
	}

	chunks := wp.numWorkers
	if chunks > n/minChunk {
		chunks = n / minChunk
	}
	if chunks <= 1 {
		fn(0, n)
		return
	}

	size := n / chunks
	var wg sync.WaitGroup
	wg.Add(chunks)
	for i := 0; i < chunks; i++ {
		lo := i * size
		hi := lo + size
		if i == chunks-1 {
			hi = n // last chunk absorbs the remainder
		}
		task := func() {
			defer wg.Done()
			fn(lo, hi)
		}
		select {
		case wp.workCh <- task:
		case <-wp.stopCh:
			// Pool shut down mid-submit; run inline so callers never hang.
			task()
		}
	}
	wg.Wait()
}

// Close shuts down the pool. Idempotent.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}
	close(wp.stopCh)
	wp.wg.Wait()
}
