// Package noise implements probabilistic error channels for frame ensembles.
//
// A channel mutates the tracked Pauli difference of every frame
// independently. Draws are never shared across frames or qubits; flips are
// accumulated into per-word masks and XORed into the bit-planes a word at a
// time.
package noise

import (
	"github.com/hupe1980/pauliframe/internal/rng"
	"github.com/hupe1980/pauliframe/tableau"
)

// Channel is a probabilistic single-qubit error channel applied across all
// frames of a tableau.
type Channel interface {
	// ApplyQubit applies the channel to qubit q of every frame.
	ApplyQubit(t *tableau.Tableau, r *rng.Source, q int)
	// Apply applies the channel independently to each qubit in qs.
	Apply(t *tableau.Tableau, r *rng.Source, qs ...int)
}

// UnbiasedUncorrelated is a depolarizing channel that applies X, Z or Y with
// equal probability ErrProbThird each (total error probability is three times
// that). The value is immutable; validation of the probability is a
// boundary-layer concern.
type UnbiasedUncorrelated struct {
	ErrProbThird float64
}

// NewUnbiasedUncorrelated creates a channel with total error probability
// errprob split equally among X, Z and Y.
func NewUnbiasedUncorrelated(errprob float64) UnbiasedUncorrelated {
	return UnbiasedUncorrelated{ErrProbThird: errprob / 3}
}

// ApplyQubit applies the channel to qubit q across every frame of t.
func (n UnbiasedUncorrelated) ApplyQubit(t *tableau.Tableau, r *rng.Source, q int) {
	p := n.ErrProbThird
	xrow, zrow := t.XRow(q), t.ZRow(q)
	frames := t.Frames()

	for w := range xrow {
		lo := w * tableau.WordBits
		hi := lo + tableau.WordBits
		if hi > frames {
			hi = frames
		}

		var xmask, zmask uint64
		for f := lo; f < hi; f++ {
			bit := uint64(1) << (f - lo)
			switch v := r.Float64(); {
			case v < p:
				xmask |= bit
			case v < 2*p:
				zmask |= bit
			case v < 3*p:
				xmask |= bit
				zmask |= bit
			}
		}
		xrow[w] ^= xmask
		zrow[w] ^= zmask
	}
}

// Apply applies the channel independently to each qubit in qs.
func (n UnbiasedUncorrelated) Apply(t *tableau.Tableau, r *rng.Source, qs ...int) {
	for _, q := range qs {
		n.ApplyQubit(t, r, q)
	}
}
