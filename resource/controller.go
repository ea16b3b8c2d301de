// Package resource bounds the concurrency and IO footprint of simulation
// runs. A nil *Controller is valid and enforces nothing, so callers thread it
// through without nil checks.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers caps concurrent trajectory workers. If 0, unlimited.
	MaxWorkers int64

	// IOLimitBytesPerSec throttles snapshot archiving. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces the limits in Config.
type Controller struct {
	workSem   *semaphore.Weighted // nil if unlimited
	ioLimiter *rate.Limiter       // nil if unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{}
	if cfg.MaxWorkers > 0 {
		c.workSem = semaphore.NewWeighted(cfg.MaxWorkers)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireWorker blocks until a worker slot is available or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil || c.workSem == nil {
		return ctx.Err()
	}
	return c.workSem.Acquire(ctx, 1)
}

// ReleaseWorker returns a slot acquired with AcquireWorker.
func (c *Controller) ReleaseWorker() {
	if c == nil || c.workSem == nil {
		return
	}
	c.workSem.Release(1)
}

// WaitIO blocks until the IO budget admits n bytes.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		if ctx == nil {
			return nil
		}
		return ctx.Err()
	}
	// A single reservation cannot exceed the limiter's burst; admit large
	// writes in burst-sized slices.
	burst := c.ioLimiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := c.ioLimiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
