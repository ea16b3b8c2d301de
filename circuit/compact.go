package circuit

// Circuit is an ordered operation sequence. Dispatch loops expect a
// compacted circuit: Compact validates every operation once so per-frame
// hot paths can skip checks, and caches the qubit/bit extent.
type Circuit struct {
	ops       []Operation
	compacted bool
	maxQubit  int
	maxBit    int
}

// New creates a circuit from the given operations.
func New(ops ...Operation) *Circuit {
	return &Circuit{ops: ops, maxQubit: -1, maxBit: -1}
}

// Append adds operations, invalidating any prior compaction.
func (c *Circuit) Append(ops ...Operation) {
	c.ops = append(c.ops, ops...)
	c.compacted = false
}

// Operations returns the operation sequence. Callers must not mutate it.
func (c *Circuit) Operations() []Operation { return c.ops }

// Len returns the number of operations.
func (c *Circuit) Len() int { return len(c.ops) }

// Compacted reports whether the circuit has been validated and compacted.
func (c *Circuit) Compacted() bool { return c.compacted }

// Qubits returns the number of qubits the circuit spans. Valid after
// Compact.
func (c *Circuit) Qubits() int { return c.maxQubit + 1 }

// Bits returns the number of measurement slots the circuit records, at least
// one. Valid after Compact.
func (c *Circuit) Bits() int {
	if c.maxBit < 0 {
		return 1
	}
	return c.maxBit + 1
}

// Compact validates the circuit and caches its extent. Compacting an already
// compacted circuit returns it unchanged.
func (c *Circuit) Compact() (*Circuit, error) {
	if c.compacted {
		return c, nil
	}

	maxQubit, maxBit := -1, -1
	for i, op := range c.ops {
		if err := validate(op); err != nil {
			return nil, &ErrInvalidOperation{Index: i, cause: err}
		}
		for _, q := range op.AffectedQubits() {
			if q > maxQubit {
				maxQubit = q
			}
		}
		if b := op.AffectedBit(); b > maxBit {
			maxBit = b
		}
	}
	if maxQubit < 0 {
		return nil, ErrEmptyCircuit
	}

	c.maxQubit = maxQubit
	c.maxBit = maxBit
	c.compacted = true
	return c, nil
}

func validate(op Operation) error {
	switch v := op.(type) {
	case GateOp:
		return validateGate(v)
	case MeasureOp:
		if v.Qubit < 0 {
			return &ErrQubitOutOfRange{Qubit: v.Qubit}
		}
		if v.Bit < NoBit {
			return &ErrBitOutOfRange{Bit: v.Bit}
		}
		return nil
	case NoisyGateOp:
		if v.Noise == nil {
			return ErrNilChannel
		}
		return validateGate(v.Gate)
	case NoiseOp:
		if v.Noise == nil {
			return ErrNilChannel
		}
		if len(v.Qubits) == 0 {
			return ErrNoTargets
		}
		for _, q := range v.Qubits {
			if q < 0 {
				return &ErrQubitOutOfRange{Qubit: q}
			}
		}
		return nil
	case NoiseAllOp:
		if v.Noise == nil {
			return ErrNilChannel
		}
		return nil
	default:
		return ErrUnknownOperation
	}
}

func validateGate(g GateOp) error {
	if len(g.Qubits) != g.Gate.Arity() {
		return &ErrArityMismatch{Gate: g.Gate, Got: len(g.Qubits)}
	}
	for _, q := range g.Qubits {
		if q < 0 {
			return &ErrQubitOutOfRange{Qubit: q}
		}
	}
	if len(g.Qubits) == 2 && g.Qubits[0] == g.Qubits[1] {
		return &ErrDuplicateQubit{Qubit: g.Qubits[0]}
	}
	return nil
}
