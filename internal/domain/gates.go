package domain

// GateKind names an abstract instruction in a gate sequence
type GateKind string

const (
	// GateSuperposition puts a single qubit into equal superposition (Hadamard)
	GateSuperposition GateKind = "superposition"
	// GateToggle flips the basis state of a single qubit (Pauli-X)
	GateToggle GateKind = "toggle"
	// GateControlledToggle flips the target when the control is |1> (CNOT)
	GateControlledToggle GateKind = "controlled_toggle"
	// GateControlledRotation applies RY(Angle) to the target when every
	// control is |1>. Zero controls means an unconditional rotation.
	GateControlledRotation GateKind = "controlled_rotation"
	// GateBarrier is an ordering marker with no effect on the state
	GateBarrier GateKind = "barrier"
	// GateMeasure measures a single qubit in the computational basis
	GateMeasure GateKind = "measure"
)

// Gate is one operation of a gate sequence
type Gate struct {
	Kind     GateKind `json:"kind" msgpack:"k"`
	Controls []int    `json:"controls,omitempty" msgpack:"c,omitempty"`
	Targets  []int    `json:"targets" msgpack:"t"`
	Angle    float64  `json:"angle,omitempty" msgpack:"a,omitempty"`
}

// Qubits returns every qubit the gate touches, controls first
func (g Gate) Qubits() []int {
	out := make([]int, 0, len(g.Controls)+len(g.Targets))
	out = append(out, g.Controls...)
	return append(out, g.Targets...)
}

// Width is the number of qubits the gate touches
func (g Gate) Width() int {
	return len(g.Controls) + len(g.Targets)
}

// IsOperation reports whether the gate counts towards circuit cost.
// Barriers and measurements do not.
func (g Gate) IsOperation() bool {
	return g.Kind != GateBarrier && g.Kind != GateMeasure
}

// GateSequence is an ordered, immutable list of gates over a fixed register
type GateSequence struct {
	Qubits   int    `json:"qubits" msgpack:"q"`
	Strategy string `json:"strategy" msgpack:"s"`
	Gates    []Gate `json:"gates" msgpack:"g"`
}

// CountByWidth returns the number of operations per touched-qubit count
func (s GateSequence) CountByWidth() map[int]int {
	counts := make(map[int]int)
	for _, g := range s.Gates {
		if g.IsOperation() {
			counts[g.Width()]++
		}
	}
	return counts
}

// TwoQubitGates counts operations touching exactly two qubits
func (s GateSequence) TwoQubitGates() int {
	return s.CountByWidth()[2]
}

// Operations counts every gate that is neither a barrier nor a measurement
func (s GateSequence) Operations() int {
	n := 0
	for _, g := range s.Gates {
		if g.IsOperation() {
			n++
		}
	}
	return n
}
