// Package tableau implements packed Pauli bit-planes for frame-ensemble
// simulation.
//
// A Tableau holds, for every qubit, an X row and a Z row of uint64 words with
// one bit per frame. A column therefore encodes one frame's Pauli operator.
// All mutation paths work a word (64 frames) at a time; nothing in this
// package iterates bit-by-bit.
package tableau

import (
	"fmt"

	"github.com/hupe1980/pauliframe/internal/pool"
	"github.com/hupe1980/pauliframe/internal/rng"
)

// Gate identifies a Clifford gate. Conjugation ignores phase bookkeeping:
// frame differences are Pauli operators up to sign, and sign never reaches a
// relative measurement outcome.
type Gate uint8

// Supported gates. Pauli gates conjugate every Pauli to itself up to sign,
// so they leave the bit-planes untouched; they exist as noise-wrapper targets.
const (
	GateI Gate = iota
	GateX
	GateY
	GateZ
	GateH
	GateS
	GateSdg
	GateSqrtX
	GateCNOT
	GateCZ
	GateSWAP
)

// Arity returns the number of qubits the gate acts on.
func (g Gate) Arity() int {
	switch g {
	case GateCNOT, GateCZ, GateSWAP:
		return 2
	default:
		return 1
	}
}

func (g Gate) String() string {
	switch g {
	case GateI:
		return "I"
	case GateX:
		return "X"
	case GateY:
		return "Y"
	case GateZ:
		return "Z"
	case GateH:
		return "H"
	case GateS:
		return "S"
	case GateSdg:
		return "Sdg"
	case GateSqrtX:
		return "SqrtX"
	case GateCNOT:
		return "CNOT"
	case GateCZ:
		return "CZ"
	case GateSWAP:
		return "SWAP"
	default:
		return fmt.Sprintf("Gate(%d)", uint8(g))
	}
}

// WordBits is the number of frames packed into one machine word.
const WordBits = 64

// Tableau is a packed bit-plane store of Pauli operators, one column per
// frame. The zero value is not usable; construct with New.
//
// A Tableau obtained from View aliases its parent's words. Concurrent use is
// safe only across views whose frame ranges start on word boundaries, which
// View enforces.
type Tableau struct {
	frames int
	words  int
	x, z   [][]uint64

	// Optional word-range parallelism for very wide ensembles. Detached by
	// the trajectory driver while it runs its own frame-level parallelism.
	pool *pool.WorkerPool
}

// New allocates an all-identity tableau for the given shape.
func New(frames, qubits int) (*Tableau, error) {
	if frames < 1 {
		return nil, fmt.Errorf("tableau: frames must be >= 1, got %d", frames)
	}
	if qubits < 1 {
		return nil, fmt.Errorf("tableau: qubits must be >= 1, got %d", qubits)
	}

	words := (frames + WordBits - 1) / WordBits
	t := &Tableau{
		frames: frames,
		words:  words,
		x:      make([][]uint64, qubits),
		z:      make([][]uint64, qubits),
	}

	// One backing array per plane keeps rows contiguous.
	xbuf := make([]uint64, qubits*words)
	zbuf := make([]uint64, qubits*words)
	for q := 0; q < qubits; q++ {
		t.x[q] = xbuf[q*words : (q+1)*words : (q+1)*words]
		t.z[q] = zbuf[q*words : (q+1)*words : (q+1)*words]
	}

	return t, nil
}

// Frames returns the number of frame columns.
func (t *Tableau) Frames() int { return t.frames }

// Qubits returns the number of qubits.
func (t *Tableau) Qubits() int { return len(t.x) }

// Words returns the number of words per row.
func (t *Tableau) Words() int { return t.words }

// TailMask masks the valid bits of the last word of a row. Slack bits beyond
// the frame count carry arbitrary values and must be masked before counting.
func (t *Tableau) TailMask() uint64 {
	if rem := t.frames % WordBits; rem != 0 {
		return (uint64(1) << rem) - 1
	}
	return ^uint64(0)
}

// AttachPool enables word-range parallel conjugation on p.
func (t *Tableau) AttachPool(p *pool.WorkerPool) { t.pool = p }

// DetachPool disables word-range parallelism and returns the previous pool so
// callers can restore it afterwards.
func (t *Tableau) DetachPool() *pool.WorkerPool {
	p := t.pool
	t.pool = nil
	return p
}

// View returns a tableau aliasing frames [lo, hi) of t. lo must fall on a
// word boundary so that disjoint views never write the same word; hi is
// word-aligned or equal to Frames().
func (t *Tableau) View(lo, hi int) (*Tableau, error) {
	if lo < 0 || hi > t.frames || lo >= hi {
		return nil, fmt.Errorf("tableau: view [%d, %d) out of range [0, %d)", lo, hi, t.frames)
	}
	if lo%WordBits != 0 {
		return nil, fmt.Errorf("tableau: view start %d not word-aligned", lo)
	}
	if hi%WordBits != 0 && hi != t.frames {
		return nil, fmt.Errorf("tableau: view end %d not word-aligned", hi)
	}

	loWord := lo / WordBits
	hiWord := (hi + WordBits - 1) / WordBits

	v := &Tableau{
		frames: hi - lo,
		words:  hiWord - loWord,
		x:      make([][]uint64, len(t.x)),
		z:      make([][]uint64, len(t.z)),
		pool:   t.pool,
	}
	for q := range t.x {
		v.x[q] = t.x[q][loWord:hiWord:hiWord]
		v.z[q] = t.z[q][loWord:hiWord:hiWord]
	}
	return v, nil
}

// XRow returns the packed X row for qubit q, aliasing the store.
func (t *Tableau) XRow(q int) []uint64 { return t.x[q] }

// ZRow returns the packed Z row for qubit q, aliasing the store.
func (t *Tableau) ZRow(q int) []uint64 { return t.z[q] }

// XBit reports the X component of frame f on qubit q.
func (t *Tableau) XBit(q, f int) bool {
	return t.x[q][f/WordBits]&(uint64(1)<<(f%WordBits)) != 0
}

// ZBit reports the Z component of frame f on qubit q.
func (t *Tableau) ZBit(q, f int) bool {
	return t.z[q][f/WordBits]&(uint64(1)<<(f%WordBits)) != 0
}

// SetXBit sets or clears the X component of frame f on qubit q.
func (t *Tableau) SetXBit(q, f int, v bool) {
	mask := uint64(1) << (f % WordBits)
	if v {
		t.x[q][f/WordBits] |= mask
	} else {
		t.x[q][f/WordBits] &^= mask
	}
}

// SetZBit sets or clears the Z component of frame f on qubit q.
func (t *Tableau) SetZBit(q, f int, v bool) {
	mask := uint64(1) << (f % WordBits)
	if v {
		t.z[q][f/WordBits] |= mask
	} else {
		t.z[q][f/WordBits] &^= mask
	}
}

// RandomizeZ sets every Z bit to an independent fair coin flip, one word draw
// per 64 frames. A fresh ensemble needs this once at construction: without
// the 50/50 Z ambiguity, frame differences of non-deterministic circuits are
// mis-distributed.
func (t *Tableau) RandomizeZ(r *rng.Source) {
	for q := range t.z {
		row := t.z[q]
		for w := range row {
			row[w] = r.Uint64()
		}
	}
}

// ResetQubit clears the X row of q and re-randomizes its Z row, the
// post-measurement state of a reset target.
func (t *Tableau) ResetQubit(q int, r *rng.Source) {
	xr, zr := t.x[q], t.z[q]
	for w := range xr {
		xr[w] = 0
		zr[w] = r.Uint64()
	}
}

// Conjugate applies g to every frame column in place. Qubit indices must be
// valid and, for two-qubit gates, distinct; callers validate before
// dispatch.
func (t *Tableau) Conjugate(g Gate, qs ...int) {
	switch g {
	case GateI, GateX, GateY, GateZ:
		// Pauli conjugation only flips signs.
	case GateH:
		x, z := t.x[qs[0]], t.z[qs[0]]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				x[w], z[w] = z[w], x[w]
			}
		})
	case GateS, GateSdg:
		x, z := t.x[qs[0]], t.z[qs[0]]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				z[w] ^= x[w]
			}
		})
	case GateSqrtX:
		x, z := t.x[qs[0]], t.z[qs[0]]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				x[w] ^= z[w]
			}
		})
	case GateCNOT:
		c, tg := qs[0], qs[1]
		xc, zc := t.x[c], t.z[c]
		xt, zt := t.x[tg], t.z[tg]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				xt[w] ^= xc[w]
				zc[w] ^= zt[w]
			}
		})
	case GateCZ:
		a, b := qs[0], qs[1]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				t.z[a][w] ^= t.x[b][w]
				t.z[b][w] ^= t.x[a][w]
			}
		})
	case GateSWAP:
		a, b := qs[0], qs[1]
		t.forWords(func(lo, hi int) {
			for w := lo; w < hi; w++ {
				t.x[a][w], t.x[b][w] = t.x[b][w], t.x[a][w]
				t.z[a][w], t.z[b][w] = t.z[b][w], t.z[a][w]
			}
		})
	}
}

// forWords runs fn over word-index chunks, on the attached pool when present.
func (t *Tableau) forWords(fn func(lo, hi int)) {
	if t.pool == nil {
		fn(0, t.words)
		return
	}
	t.pool.ForRange(t.words, fn)
}
