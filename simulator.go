package pauliframe

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/pauliframe/circuit"
	"github.com/hupe1980/pauliframe/frame"
	"github.com/hupe1980/pauliframe/internal/rng"
	"github.com/hupe1980/pauliframe/tableau"
)

// DefaultMinBatch is the smallest trajectory count worth a dedicated worker.
const DefaultMinBatch = 256

// Simulator runs Monte-Carlo trajectory batches of a stabilizer circuit
// using the Pauli-frame technique: one ensemble of packed error frames,
// partitioned into disjoint views across workers.
type Simulator struct {
	opts options
}

// NewSimulator creates a Simulator.
func NewSimulator(opts ...Option) *Simulator {
	o := options{
		logger:   NoopLogger(),
		parallel: true,
		minBatch: DefaultMinBatch,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Simulator{opts: o}
}

func (s *Simulator) masterRNG() *rng.Source {
	if s.opts.seeded {
		return rng.New(s.opts.seed)
	}
	return rng.New(uint64(time.Now().UnixNano()))
}

// Run simulates trajectories of c and returns the completed ensemble. The
// result is all-or-nothing: any batch failure discards the whole run.
func (s *Simulator) Run(ctx context.Context, c *circuit.Circuit, trajectories int) (*frame.Ensemble, error) {
	if c == nil {
		return nil, ErrNilCircuit
	}
	if trajectories < 1 {
		return nil, &ErrInvalidTrajectories{Trajectories: trajectories}
	}

	cc, err := c.Compact()
	if err != nil {
		return nil, err
	}

	master := s.masterRNG()
	ens, err := frame.New(trajectories, cc.Qubits(), cc.Bits(), master)
	if err != nil {
		return nil, err
	}

	if err := s.runBatches(ctx, ens, cc, master); err != nil {
		return nil, err
	}
	return ens, nil
}

// RunOnEnsemble applies c to an existing ensemble, sequentially and in
// program order.
func (s *Simulator) RunOnEnsemble(ens *frame.Ensemble, c *circuit.Circuit) error {
	if c == nil {
		return ErrNilCircuit
	}
	return ens.RunCircuit(c, s.masterRNG())
}

func (s *Simulator) runBatches(ctx context.Context, ens *frame.Ensemble, cc *circuit.Circuit, master *rng.Source) error {
	trajectories := ens.Frames()

	nthr := trajectories / s.opts.minBatch
	if g := runtime.GOMAXPROCS(0); nthr > g {
		nthr = g
	}

	if !s.opts.parallel || nthr <= 1 {
		s.opts.logger.Debug("running sequentially", "trajectories", trajectories)
		return ens.RunCircuit(cc, master.Split(0))
	}

	// Batch boundaries fall on word boundaries so no two workers ever
	// write the same packed word; the last batch absorbs the remainder.
	batch := trajectories / nthr
	batch = (batch + tableau.WordBits - 1) / tableau.WordBits * tableau.WordBits

	// The trajectory level is embarrassingly parallel and saturates the
	// machine on its own; word-level parallelism inside the tableau would
	// only oversubscribe. Scoped off, restored after the run.
	restore := ens.Tableau().DetachPool()
	defer func() {
		if restore != nil {
			ens.Tableau().AttachPool(restore)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	batches := 0
	for lo := 0; lo < trajectories; lo += batch {
		hi := lo + batch
		if trajectories-hi < tableau.WordBits {
			hi = trajectories
		}

		view, err := ens.View(lo, hi)
		if err != nil {
			return err
		}
		// Every worker draws from its own derived stream; a shared
		// unsynchronized generator across workers would be incorrect.
		stream := master.Split(batches)
		batches++

		g.Go(func() error {
			if err := s.opts.controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.controller.ReleaseWorker()
			return view.RunCircuit(cc, stream)
		})

		if hi == trajectories {
			break
		}
	}

	s.opts.logger.WithTrajectories(trajectories).WithBatches(batches).Debug("running batched", "batch_size", batch)
	return g.Wait()
}

// ReferenceRunner produces the reference trajectory's measurement outcomes
// for a circuit, one boolean per measurement slot. Implementations simulate
// the ideal, noiseless run; this package only tracks differences against it.
type ReferenceRunner interface {
	RunReference(c *circuit.Circuit) ([]bool, error)
}

// RunWithReference runs the reference once, simulates trajectories, and
// returns the absolute outcomes (reference XOR relative flips) alongside the
// ensemble.
func (s *Simulator) RunWithReference(ctx context.Context, ref ReferenceRunner, c *circuit.Circuit, trajectories int) ([][]uint64, *frame.Ensemble, error) {
	if ref == nil {
		return nil, nil, ErrNilReference
	}

	ens, err := s.Run(ctx, c, trajectories)
	if err != nil {
		return nil, nil, err
	}

	outcomes, err := ref.RunReference(c)
	if err != nil {
		return nil, nil, err
	}

	abs, err := AbsoluteMeasurements(outcomes, ens)
	if err != nil {
		return nil, nil, err
	}
	return abs, ens, nil
}
