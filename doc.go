// Package pauliframe simulates error propagation through stabilizer circuits
// with the Pauli-frame technique.
//
// Instead of re-simulating a noisy circuit per trajectory, a single noiseless
// reference trajectory is assumed and each trajectory tracks only its Pauli
// difference from it. Differences for thousands of trajectories live side by
// side in packed machine words, so gates, noise and measurements update 64
// frames per bitwise operation.
//
// # Quick Start
//
//	ch := noise.NewUnbiasedUncorrelated(0.01)
//	c := circuit.New(
//	    circuit.Noisy(circuit.CNOT(0, 1), ch),
//	    circuit.MeasureReset(1, 0),
//	)
//
//	sim := pauliframe.NewSimulator(pauliframe.WithSeed(42))
//	ens, err := sim.Run(ctx, c, 100_000)
//	if err != nil {
//	    ...
//	}
//	flips := ens.CountFlipped(0)
//
// Outcomes are relative: a set bit means the frame's measurement differs from
// the reference trajectory's. Combine with reference outcomes via
// AbsoluteMeasurements to obtain absolute results.
//
// Trajectories are partitioned into word-aligned batches and simulated
// concurrently on disjoint views of one ensemble; results are statistically
// identical between parallel and sequential runs.
//
// The snapshot and blobstore packages persist and archive completed runs.
package pauliframe
