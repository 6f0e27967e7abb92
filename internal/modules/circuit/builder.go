// Package circuit builds the gate sequences that load an image into the
// amplitudes of a value qubit entangled with a register of index qubits.
package circuit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
)

// Strategy selects how the per-cell rotations are emitted
type Strategy string

const (
	// StrategyCell emits one fully controlled rotation per addressable cell,
	// stepping between cells with Gray-code toggles
	StrategyCell Strategy = "cell"
	// StrategyPredicate emits one rotation per minimized cube of each
	// intensity group
	StrategyPredicate Strategy = "predicate"
	// StrategyUniform emits the cell loop as a uniformly controlled rotation
	// built from single-qubit rotations and CNOTs
	StrategyUniform Strategy = "uniform"
)

// ErrUnknownStrategy is returned for strategy names the builder cannot emit
var ErrUnknownStrategy = errors.New("unknown circuit strategy")

// Strategies lists every supported strategy
func Strategies() []Strategy {
	return []Strategy{StrategyCell, StrategyPredicate, StrategyUniform}
}

// ParseStrategy resolves a configured strategy name, case-insensitively
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Builder encodes images of one fixed side length
type Builder struct {
	layout   domain.Layout
	strategy Strategy
	log      zerolog.Logger
}

// NewBuilder creates a builder for side x side images
func NewBuilder(side int, strategy Strategy, log zerolog.Logger) (*Builder, error) {
	layout, err := domain.NewLayout(side)
	if err != nil {
		return nil, err
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	return &Builder{
		layout:   layout,
		strategy: strategy,
		log:      log.With().Str("component", "circuit_builder").Str("strategy", string(strategy)).Logger(),
	}, nil
}

// Layout returns the qubit budget the builder encodes against
func (b *Builder) Layout() domain.Layout {
	return b.layout
}

// Strategy returns the configured emission strategy
func (b *Builder) Strategy() Strategy {
	return b.strategy
}

// WithStrategy returns a copy of the builder using another strategy
func (b *Builder) WithStrategy(strategy Strategy) (*Builder, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	clone := *b
	clone.strategy = strategy
	clone.log = b.log.With().Str("strategy", string(strategy)).Logger()
	return &clone, nil
}

// Encode builds the gate sequence for img and returns it with its qubit count.
// The image is validated before any gate is emitted.
func (b *Builder) Encode(img domain.Image) (domain.GateSequence, int, error) {
	if err := img.Validate(b.layout.Side); err != nil {
		return domain.GateSequence{}, 0, err
	}

	e := newEmitter(b.layout, b.strategy)
	e.superposition()

	var err error
	switch b.strategy {
	case StrategyCell:
		err = b.emitCells(e, img)
	case StrategyPredicate:
		err = b.emitPredicates(e, img)
	case StrategyUniform:
		err = b.emitUniform(e, img)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownStrategy, b.strategy)
	}
	if err != nil {
		return domain.GateSequence{}, 0, err
	}

	e.measure()
	seq := e.sequence()

	b.log.Debug().
		Int("qubits", seq.Qubits).
		Int("gates", len(seq.Gates)).
		Int("two_qubit_gates", seq.TwoQubitGates()).
		Msg("Encoded image")

	return seq, seq.Qubits, nil
}

// ToggleMask is the set of index bits that change between cell i-1 and cell i.
// Cell 0 needs no toggles.
func ToggleMask(i uint64) uint64 {
	if i == 0 {
		return 0
	}
	return i ^ (i - 1)
}

// emitter accumulates gates and tracks which index bits are currently
// toggled relative to the superposition layer
type emitter struct {
	layout  domain.Layout
	seq     domain.GateSequence
	toggled uint64
}

func newEmitter(layout domain.Layout, strategy Strategy) *emitter {
	return &emitter{
		layout: layout,
		seq: domain.GateSequence{
			Qubits:   layout.Qubits,
			Strategy: string(strategy),
		},
	}
}

func (e *emitter) add(g domain.Gate) {
	e.seq.Gates = append(e.seq.Gates, g)
}

func (e *emitter) barrier() {
	all := make([]int, e.layout.Qubits)
	for q := range all {
		all[q] = q
	}
	e.add(domain.Gate{Kind: domain.GateBarrier, Targets: all})
}

func (e *emitter) superposition() {
	for q := 0; q < e.layout.IndexQubits; q++ {
		e.add(domain.Gate{Kind: domain.GateSuperposition, Targets: []int{q}})
	}
	e.barrier()
}

// toggle flips every index qubit whose bit is set in mask, MSB qubit first
func (e *emitter) toggle(mask uint64) {
	for q := 0; q < e.layout.IndexQubits; q++ {
		if mask&(uint64(1)<<e.layout.BitForQubit(q)) != 0 {
			e.add(domain.Gate{Kind: domain.GateToggle, Targets: []int{q}})
		}
	}
	e.toggled ^= mask
}

// rotate applies RY(angle) to the value qubit, controlled by the index qubits
// whose bits are set in controlMask
func (e *emitter) rotate(angle float64, controlMask uint64) {
	var controls []int
	for q := 0; q < e.layout.IndexQubits; q++ {
		if controlMask&(uint64(1)<<e.layout.BitForQubit(q)) != 0 {
			controls = append(controls, q)
		}
	}
	e.add(domain.Gate{
		Kind:     domain.GateControlledRotation,
		Controls: controls,
		Targets:  []int{e.layout.ValueQubit()},
		Angle:    angle,
	})
}

// cnot flips the value qubit when the given index bit is set
func (e *emitter) cnot(bit int) {
	e.add(domain.Gate{
		Kind:     domain.GateControlledToggle,
		Controls: []int{e.layout.QubitForBit(bit)},
		Targets:  []int{e.layout.ValueQubit()},
	})
}

func (e *emitter) measure() {
	e.barrier()
	for q := 0; q < e.layout.Qubits; q++ {
		e.add(domain.Gate{Kind: domain.GateMeasure, Targets: []int{q}})
	}
}

func (e *emitter) sequence() domain.GateSequence {
	return e.seq
}
