package frame

import (
	"github.com/hupe1980/pauliframe/circuit"
	"github.com/hupe1980/pauliframe/internal/rng"
)

// RunCircuit applies every operation of c in program order, mutating the
// ensemble in place. The circuit is compacted first if needed; a malformed
// operation aborts the run with the offending error.
func (e *Ensemble) RunCircuit(c *circuit.Circuit, r *rng.Source) error {
	cc, err := c.Compact()
	if err != nil {
		return err
	}
	for _, op := range cc.Operations() {
		if err := e.Apply(op, r); err != nil {
			return err
		}
	}
	return nil
}

// Apply dispatches a single operation. The variant set is closed; every
// branch mutates the packed store and/or the measurement matrix in place.
func (e *Ensemble) Apply(op circuit.Operation, r *rng.Source) error {
	switch v := op.(type) {
	case circuit.GateOp:
		if err := e.checkQubits(v.Qubits); err != nil {
			return err
		}
		e.tab.Conjugate(v.Gate, v.Qubits...)
		return nil

	case circuit.MeasureOp:
		return e.measure(v, r)

	case circuit.NoisyGateOp:
		if err := e.checkQubits(v.Gate.Qubits); err != nil {
			return err
		}
		// Ideal gate first, decoherence after. The noise targets exactly
		// the qubits the gate touched.
		e.tab.Conjugate(v.Gate.Gate, v.Gate.Qubits...)
		v.Noise.Apply(e.tab, r, v.Gate.Qubits...)
		return nil

	case circuit.NoiseOp:
		if err := e.checkQubits(v.Qubits); err != nil {
			return err
		}
		v.Noise.Apply(e.tab, r, v.Qubits...)
		return nil

	case circuit.NoiseAllOp:
		for q := 0; q < e.qubits; q++ {
			v.Noise.ApplyQubit(e.tab, r, q)
		}
		return nil

	default:
		return circuit.ErrUnknownOperation
	}
}

func (e *Ensemble) measure(v circuit.MeasureOp, r *rng.Source) error {
	if v.Qubit < 0 || v.Qubit >= e.qubits {
		return &circuit.ErrQubitOutOfRange{Qubit: v.Qubit, Qubits: e.qubits}
	}

	if v.Bit != circuit.NoBit {
		if v.Bit < 0 || v.Bit >= e.bits {
			return &circuit.ErrBitOutOfRange{Bit: v.Bit, Bits: e.bits}
		}
		// A frame's outcome differs from the reference exactly when its
		// difference operator anticommutes with the Z measurement, i.e.
		// when the X component is set.
		copy(e.meas[v.Bit], e.tab.XRow(v.Qubit))
	}

	if v.Reset {
		// The reference resets deterministically, so no frame may keep a
		// residual X difference; the Z component is re-ambiguous, same as
		// at construction.
		e.tab.ResetQubit(v.Qubit, r)
	}
	return nil
}

func (e *Ensemble) checkQubits(qs []int) error {
	for _, q := range qs {
		if q < 0 || q >= e.qubits {
			return &circuit.ErrQubitOutOfRange{Qubit: q, Qubits: e.qubits}
		}
	}
	return nil
}
