// Package frame implements the Pauli-frame ensemble: many simultaneous error
// frames tracked as packed Pauli differences against a reference trajectory,
// plus the relative measurement outcomes each frame records.
//
// An Ensemble is fixed-shape after construction and mutated strictly in
// place. Views over word-aligned frame ranges alias the parent's storage,
// which is how the trajectory driver partitions work across goroutines
// without copies or locks.
package frame

import (
	"fmt"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/pauliframe/internal/rng"
	"github.com/hupe1980/pauliframe/tableau"
)

// Ensemble bundles the packed frame store with the relative measurement
// matrix. measurement row b holds one bit per frame: set iff that frame's
// outcome for bit b differs from the reference trajectory's.
type Ensemble struct {
	frames int
	qubits int
	bits   int

	tab  *tableau.Tableau
	meas [][]uint64 // [bit][word], packed over frames
}

// New allocates an ensemble of the given shape and randomizes the Z
// component of every frame, the 50/50 phase ambiguity a fresh frame carries
// relative to the reference.
func New(frames, qubits, measurements int, r *rng.Source) (*Ensemble, error) {
	if measurements < 1 {
		return nil, fmt.Errorf("frame: measurements must be >= 1, got %d", measurements)
	}

	tab, err := tableau.New(frames, qubits)
	if err != nil {
		return nil, err
	}
	tab.RandomizeZ(r)

	words := tab.Words()
	buf := make([]uint64, measurements*words)
	meas := make([][]uint64, measurements)
	for b := range meas {
		meas[b] = buf[b*words : (b+1)*words : (b+1)*words]
	}

	return &Ensemble{
		frames: frames,
		qubits: qubits,
		bits:   measurements,
		tab:    tab,
		meas:   meas,
	}, nil
}

// Frames returns the number of frames.
func (e *Ensemble) Frames() int { return e.frames }

// Qubits returns the number of qubits.
func (e *Ensemble) Qubits() int { return e.qubits }

// Measurements returns the number of measurement slots.
func (e *Ensemble) Measurements() int { return e.bits }

// Tableau returns the underlying packed frame store.
func (e *Ensemble) Tableau() *tableau.Tableau { return e.tab }

// View returns an ensemble aliasing frames [lo, hi). The same word-alignment
// rules as tableau.View apply; disjoint aligned views are safe to mutate
// concurrently.
func (e *Ensemble) View(lo, hi int) (*Ensemble, error) {
	vt, err := e.tab.View(lo, hi)
	if err != nil {
		return nil, err
	}

	loWord := lo / tableau.WordBits
	hiWord := loWord + vt.Words()
	meas := make([][]uint64, e.bits)
	for b := range meas {
		meas[b] = e.meas[b][loWord:hiWord:hiWord]
	}

	return &Ensemble{
		frames: hi - lo,
		qubits: e.qubits,
		bits:   e.bits,
		tab:    vt,
		meas:   meas,
	}, nil
}

// Result reports whether frame f's outcome for measurement bit b differs
// from the reference.
func (e *Ensemble) Result(f, b int) bool {
	return e.meas[b][f/tableau.WordBits]&(uint64(1)<<(f%tableau.WordBits)) != 0
}

// MeasurementRow returns the packed relative outcomes for bit b, aliasing
// the store.
func (e *Ensemble) MeasurementRow(b int) []uint64 { return e.meas[b] }

// Relative returns a copy of the packed relative measurement matrix, one row
// per bit with slack bits cleared.
func (e *Ensemble) Relative() [][]uint64 {
	mask := e.tab.TailMask()
	out := make([][]uint64, e.bits)
	for b := range out {
		row := make([]uint64, len(e.meas[b]))
		copy(row, e.meas[b])
		row[len(row)-1] &= mask
		out[b] = row
	}
	return out
}

// CountFlipped returns how many frames recorded a flipped outcome for bit b.
func (e *Ensemble) CountFlipped(b int) int {
	row := e.meas[b]
	mask := e.tab.TailMask()
	n := 0
	for w, word := range row {
		if w == len(row)-1 {
			word &= mask
		}
		n += bits.OnesCount64(word)
	}
	return n
}

// FlippedFrames returns the set of frames whose outcome for bit b differs
// from the reference.
func (e *Ensemble) FlippedFrames(b int) *roaring.Bitmap {
	rb := roaring.New()
	row := e.meas[b]
	mask := e.tab.TailMask()
	for w, word := range row {
		if w == len(row)-1 {
			word &= mask
		}
		base := uint32(w * tableau.WordBits)
		for word != 0 {
			rb.Add(base + uint32(bits.TrailingZeros64(word)))
			word &= word - 1
		}
	}
	return rb
}
