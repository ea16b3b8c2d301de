package pauliframe

import (
	"context"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/pauliframe/circuit"
	"github.com/hupe1980/pauliframe/frame"
	"github.com/hupe1980/pauliframe/noise"
	"github.com/hupe1980/pauliframe/resource"
)

func noisyBellCircuit(errprob float64) *circuit.Circuit {
	return circuit.New(
		circuit.H(0),
		circuit.CNOT(0, 1),
		circuit.NoiseEverywhere(noise.NewUnbiasedUncorrelated(errprob)),
		circuit.Measure(0, 0),
		circuit.Measure(1, 1),
	)
}

func flipRate(ens *frame.Ensemble, bit int) float64 {
	return float64(ens.CountFlipped(bit)) / float64(ens.Frames())
}

func TestRunSequential(t *testing.T) {
	sim := NewSimulator(WithSeed(42), WithParallel(false))

	ens, err := sim.Run(context.Background(), noisyBellCircuit(0.05), 5000)
	require.NoError(t, err)
	require.Equal(t, 5000, ens.Frames())
	require.Equal(t, 2, ens.Qubits())
	require.Equal(t, 2, ens.Measurements())
}

func TestRunParallelMatchesSequentialMarginals(t *testing.T) {
	const trajectories = 1 << 15
	c := noisyBellCircuit(0.06)

	seq := NewSimulator(WithSeed(7), WithParallel(false))
	seqEns, err := seq.Run(context.Background(), c, trajectories)
	require.NoError(t, err)

	par := NewSimulator(WithSeed(7), WithMinBatch(1024))
	parEns, err := par.Run(context.Background(), c, trajectories)
	require.NoError(t, err)

	// Different rng stream layout, same distribution: marginal flip rates
	// must agree within Monte-Carlo tolerance.
	for b := 0; b < 2; b++ {
		require.InDelta(t, flipRate(seqEns, b), flipRate(parEns, b), 0.02, "bit %d", b)
	}
}

func TestRunSeededIsReproducible(t *testing.T) {
	c := noisyBellCircuit(0.08)

	first := NewSimulator(WithSeed(1234))
	a, err := first.Run(context.Background(), c, 1<<14)
	require.NoError(t, err)

	second := NewSimulator(WithSeed(1234))
	b, err := second.Run(context.Background(), c, 1<<14)
	require.NoError(t, err)

	require.Equal(t, a.Relative(), b.Relative())
}

func TestRunNoNoiseNeverFlips(t *testing.T) {
	// No noise and no basis change: the X planes stay clear, so every frame
	// agrees with the reference. An H before measuring would legitimately
	// randomize outcomes through the Z-plane sign ambiguity.
	c := circuit.New(
		circuit.X(0),
		circuit.CNOT(0, 1),
		circuit.Measure(0, 0),
		circuit.Measure(1, 1),
	)

	sim := NewSimulator(WithSeed(3))
	ens, err := sim.Run(context.Background(), c, 10000)
	require.NoError(t, err)

	for b := 0; b < 2; b++ {
		require.Zero(t, ens.CountFlipped(b), "bit %d", b)
	}
}

func TestRunValidation(t *testing.T) {
	sim := NewSimulator()
	ctx := context.Background()

	_, err := sim.Run(ctx, nil, 100)
	require.ErrorIs(t, err, ErrNilCircuit)

	var invalid *ErrInvalidTrajectories
	_, err = sim.Run(ctx, noisyBellCircuit(0.1), 0)
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 0, invalid.Trajectories)

	// Compaction failures surface before any frames are allocated.
	_, err = sim.Run(ctx, circuit.New(circuit.CNOT(1, 1)), 100)
	require.Error(t, err)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := NewSimulator(
		WithSeed(5),
		WithMinBatch(256),
		WithResourceController(resource.NewController(resource.Config{MaxWorkers: 1})),
	)

	_, err := sim.Run(ctx, noisyBellCircuit(0.1), 1<<14)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunOnEnsemble(t *testing.T) {
	sim := NewSimulator(WithSeed(11))

	ens, err := sim.Run(context.Background(), noisyBellCircuit(0.1), 4096)
	require.NoError(t, err)

	before := append([]uint64(nil), ens.MeasurementRow(0)...)
	require.NoError(t, sim.RunOnEnsemble(ens, circuit.New(
		circuit.ApplyNoise(noise.NewUnbiasedUncorrelated(0.3), 0),
		circuit.Measure(0, 0),
	)))

	// The second measurement overwrites slot 0 with fresh, noisier outcomes.
	require.NotEqual(t, before, ens.MeasurementRow(0))
}

func popcountMasked(row []uint64, mask uint64) int {
	total := 0
	for w, v := range row {
		if w == len(row)-1 {
			v &= mask
		}
		total += bits.OnesCount64(v)
	}
	return total
}

func TestAbsoluteMeasurements(t *testing.T) {
	c := circuit.New(
		circuit.X(0),
		circuit.CNOT(0, 1),
		circuit.Measure(0, 0),
		circuit.Measure(1, 1),
	)

	sim := NewSimulator(WithSeed(21))
	ens, err := sim.Run(context.Background(), c, 1000)
	require.NoError(t, err)

	// No noise: relative rows are all zero, so absolute outcomes equal the
	// reference outcomes for every frame.
	abs, err := AbsoluteMeasurements([]bool{true, false}, ens)
	require.NoError(t, err)

	mask := ens.Tableau().TailMask()
	require.Equal(t, 1000, popcountMasked(abs[0], mask))
	require.Zero(t, popcountMasked(abs[1], mask))

	// Bits past the last frame stay clear.
	tail := abs[0][len(abs[0])-1]
	require.Zero(t, tail&^mask)
}

func TestAbsoluteMeasurementsShapeMismatch(t *testing.T) {
	sim := NewSimulator(WithSeed(2))
	ens, err := sim.Run(context.Background(), noisyBellCircuit(0.1), 500)
	require.NoError(t, err)

	var shape *ErrReferenceShape
	_, err = AbsoluteMeasurements([]bool{true}, ens)
	require.ErrorAs(t, err, &shape)
	require.Equal(t, 2, shape.Expected)
	require.Equal(t, 1, shape.Actual)
}

type stubReference struct {
	outcomes []bool
	err      error
}

func (s *stubReference) RunReference(_ *circuit.Circuit) ([]bool, error) {
	return s.outcomes, s.err
}

func TestRunWithReference(t *testing.T) {
	sim := NewSimulator(WithSeed(9))
	ref := &stubReference{outcomes: []bool{false, true}}

	abs, ens, err := sim.RunWithReference(context.Background(), ref, noisyBellCircuit(0.04), 2048)
	require.NoError(t, err)
	require.Equal(t, 2048, ens.Frames())
	require.Len(t, abs, 2)

	// Bit 1's reference outcome is set, so its absolute rate is the
	// complement of its flip rate.
	mask := ens.Tableau().TailMask()
	rate := float64(popcountMasked(abs[1], mask)) / float64(ens.Frames())
	require.InDelta(t, 1.0-flipRate(ens, 1), rate, 1e-9)
}

func TestRunWithReferenceNil(t *testing.T) {
	sim := NewSimulator()
	_, _, err := sim.RunWithReference(context.Background(), nil, noisyBellCircuit(0.1), 100)
	require.ErrorIs(t, err, ErrNilReference)
}

func TestParallelBatchBoundariesAligned(t *testing.T) {
	// Ragged trajectory counts must still split on packed word boundaries.
	c := circuit.New(
		circuit.X(0),
		circuit.ApplyNoise(noise.NewUnbiasedUncorrelated(0.06), 0),
		circuit.Measure(0, 0),
	)

	for _, trajectories := range []int{1<<14 + 1, 1<<14 + 63, 1<<14 + 100} {
		sim := NewSimulator(WithSeed(17), WithMinBatch(512))
		ens, err := sim.Run(context.Background(), c, trajectories)
		require.NoError(t, err)
		require.Equal(t, trajectories, ens.Frames())

		// P(X or Y) per site is two thirds of the channel probability.
		require.InDelta(t, 2.0*0.06/3.0, flipRate(ens, 0), 0.01)
	}
}

func TestRelativeMeasurementsMatchesEnsemble(t *testing.T) {
	sim := NewSimulator(WithSeed(33))
	ens, err := sim.Run(context.Background(), noisyBellCircuit(0.07), 4096)
	require.NoError(t, err)

	rows := RelativeMeasurements(ens)
	require.Len(t, rows, ens.Measurements())

	mask := ens.Tableau().TailMask()
	for b, row := range rows {
		require.Equal(t, ens.CountFlipped(b), popcountMasked(row, mask))
	}
}
