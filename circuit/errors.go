package circuit

import (
	"errors"
	"fmt"

	"github.com/hupe1980/pauliframe/tableau"
)

var (
	// ErrEmptyCircuit is returned when a circuit references no qubits.
	ErrEmptyCircuit = errors.New("circuit references no qubits")
	// ErrNilChannel is returned when a noise wrapper carries no channel.
	ErrNilChannel = errors.New("noise wrapper has nil channel")
	// ErrNoTargets is returned when a noise operation targets no qubits.
	ErrNoTargets = errors.New("noise operation targets no qubits")
	// ErrUnknownOperation is returned for operation variants outside the
	// closed set.
	ErrUnknownOperation = errors.New("unknown operation variant")
)

// ErrQubitOutOfRange indicates a negative or out-of-bounds qubit index.
type ErrQubitOutOfRange struct {
	Qubit  int
	Qubits int // 0 when the bound is not yet known
}

func (e *ErrQubitOutOfRange) Error() string {
	if e.Qubits > 0 {
		return fmt.Sprintf("qubit index %d out of range [0, %d)", e.Qubit, e.Qubits)
	}
	return fmt.Sprintf("invalid qubit index %d", e.Qubit)
}

// ErrBitOutOfRange indicates an out-of-bounds measurement bit index.
type ErrBitOutOfRange struct {
	Bit  int
	Bits int // 0 when the bound is not yet known
}

func (e *ErrBitOutOfRange) Error() string {
	if e.Bits > 0 {
		return fmt.Sprintf("measurement bit %d out of range [0, %d)", e.Bit, e.Bits)
	}
	return fmt.Sprintf("invalid measurement bit %d", e.Bit)
}

// ErrArityMismatch indicates a gate applied to the wrong number of qubits.
type ErrArityMismatch struct {
	Gate tableau.Gate
	Got  int
}

func (e *ErrArityMismatch) Error() string {
	return fmt.Sprintf("gate %s expects %d qubit(s), got %d", e.Gate, e.Gate.Arity(), e.Got)
}

// ErrDuplicateQubit indicates a two-qubit gate with identical operands.
type ErrDuplicateQubit struct {
	Qubit int
}

func (e *ErrDuplicateQubit) Error() string {
	return fmt.Sprintf("two-qubit gate operands must differ, both are %d", e.Qubit)
}

// ErrInvalidOperation wraps a validation failure with the operation's
// position in the circuit.
type ErrInvalidOperation struct {
	Index int
	cause error
}

func (e *ErrInvalidOperation) Error() string {
	return fmt.Sprintf("operation %d: %v", e.Index, e.cause)
}

func (e *ErrInvalidOperation) Unwrap() error { return e.cause }
