package pauliframe

import (
	"github.com/hupe1980/pauliframe/resource"
)

type options struct {
	logger     *Logger
	seed       uint64
	seeded     bool
	parallel   bool
	minBatch   int
	controller *resource.Controller
}

// Option configures a Simulator.
type Option func(*options)

// WithLogger sets the logger. Defaults to a noop logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSeed fixes the master random seed so runs are reproducible. Without it
// every run draws a fresh seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithParallel enables or disables trajectory-level parallelism. Enabled by
// default.
func WithParallel(enabled bool) Option {
	return func(o *options) {
		o.parallel = enabled
	}
}

// WithMinBatch sets the smallest number of trajectories worth a dedicated
// worker. Below it, goroutine overhead dominates the bit-parallel updates.
func WithMinBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minBatch = n
		}
	}
}

// WithResourceController caps worker concurrency and archive IO through rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}
