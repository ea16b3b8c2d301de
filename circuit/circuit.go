// Package circuit models stabilizer circuits as a closed set of operation
// variants: Clifford gates, measurements with or without reset, and noise
// wrappers. The variant set is fixed; consumers dispatch with an exhaustive
// type switch.
package circuit

import (
	"github.com/hupe1980/pauliframe/noise"
	"github.com/hupe1980/pauliframe/tableau"
)

// NoBit marks a measurement whose outcome is not recorded.
const NoBit = -1

// Operation is one step of a circuit. The implementations form a closed set
// within this package.
type Operation interface {
	// AffectedQubits returns the qubit indices the operation acts on, in
	// order. Empty only for all-qubit noise, whose targets depend on the
	// ensemble shape.
	AffectedQubits() []int

	// AffectedBit returns the measurement bit the operation records, or
	// NoBit.
	AffectedBit() int

	sealed()
}

// GateOp applies a Clifford gate.
type GateOp struct {
	Gate   tableau.Gate
	Qubits []int
}

func (op GateOp) AffectedQubits() []int { return op.Qubits }
func (op GateOp) AffectedBit() int      { return NoBit }
func (GateOp) sealed()                  {}

// MeasureOp measures a qubit in the Z basis. When Reset is set the qubit is
// deterministically reset afterwards. Bit == NoBit measures without
// recording.
type MeasureOp struct {
	Qubit int
	Bit   int
	Reset bool
}

func (op MeasureOp) AffectedQubits() []int { return []int{op.Qubit} }
func (op MeasureOp) AffectedBit() int      { return op.Bit }
func (MeasureOp) sealed()                  {}

// NoisyGateOp applies a gate and then the channel on exactly the gate's
// qubits, modeling post-gate decoherence. The order is part of the contract.
type NoisyGateOp struct {
	Gate  GateOp
	Noise noise.Channel
}

func (op NoisyGateOp) AffectedQubits() []int { return op.Gate.Qubits }
func (op NoisyGateOp) AffectedBit() int      { return NoBit }
func (NoisyGateOp) sealed()                  {}

// NoiseOp applies a channel to an explicit set of qubits.
type NoiseOp struct {
	Noise  noise.Channel
	Qubits []int
}

func (op NoiseOp) AffectedQubits() []int { return op.Qubits }
func (op NoiseOp) AffectedBit() int      { return NoBit }
func (NoiseOp) sealed()                  {}

// NoiseAllOp applies a channel to every qubit of the ensemble it runs on.
type NoiseAllOp struct {
	Noise noise.Channel
}

func (op NoiseAllOp) AffectedQubits() []int { return nil }
func (op NoiseAllOp) AffectedBit() int      { return NoBit }
func (NoiseAllOp) sealed()                  {}

// Single-qubit gate constructors.

func I(q int) GateOp     { return GateOp{Gate: tableau.GateI, Qubits: []int{q}} }
func X(q int) GateOp     { return GateOp{Gate: tableau.GateX, Qubits: []int{q}} }
func Y(q int) GateOp     { return GateOp{Gate: tableau.GateY, Qubits: []int{q}} }
func Z(q int) GateOp     { return GateOp{Gate: tableau.GateZ, Qubits: []int{q}} }
func H(q int) GateOp     { return GateOp{Gate: tableau.GateH, Qubits: []int{q}} }
func S(q int) GateOp     { return GateOp{Gate: tableau.GateS, Qubits: []int{q}} }
func Sdg(q int) GateOp   { return GateOp{Gate: tableau.GateSdg, Qubits: []int{q}} }
func SqrtX(q int) GateOp { return GateOp{Gate: tableau.GateSqrtX, Qubits: []int{q}} }

// Two-qubit gate constructors.

func CNOT(control, target int) GateOp {
	return GateOp{Gate: tableau.GateCNOT, Qubits: []int{control, target}}
}

func CZ(a, b int) GateOp {
	return GateOp{Gate: tableau.GateCZ, Qubits: []int{a, b}}
}

func SWAP(a, b int) GateOp {
	return GateOp{Gate: tableau.GateSWAP, Qubits: []int{a, b}}
}

// Measure records the Z-basis outcome of q into bit.
func Measure(q, bit int) MeasureOp { return MeasureOp{Qubit: q, Bit: bit} }

// MeasureReset records the outcome of q into bit and resets the qubit.
// Pass NoBit to reset without recording.
func MeasureReset(q, bit int) MeasureOp { return MeasureOp{Qubit: q, Bit: bit, Reset: true} }

// Noisy wraps g with post-gate noise on the gate's qubits.
func Noisy(g GateOp, ch noise.Channel) NoisyGateOp { return NoisyGateOp{Gate: g, Noise: ch} }

// ApplyNoise applies ch to the given qubits.
func ApplyNoise(ch noise.Channel, qs ...int) NoiseOp { return NoiseOp{Noise: ch, Qubits: qs} }

// NoiseEverywhere applies ch to every qubit.
func NoiseEverywhere(ch noise.Channel) NoiseAllOp { return NoiseAllOp{Noise: ch} }
