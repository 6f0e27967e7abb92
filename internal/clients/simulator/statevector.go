package simulator

import (
	"fmt"
	"math"

	"github.com/aristath/qpixel/internal/domain"
)

// stateVector holds real amplitudes. Bit q of a basis index is the state of
// qubit q; every supported gate keeps amplitudes real.
type stateVector struct {
	amplitudes []float64
	qubits     int
}

func newStateVector(qubits int) *stateVector {
	amps := make([]float64, 1<<qubits)
	amps[0] = 1
	return &stateVector{amplitudes: amps, qubits: qubits}
}

func (s *stateVector) apply(g domain.Gate) error {
	for _, q := range g.Qubits() {
		if q < 0 || q >= s.qubits {
			return fmt.Errorf("%w: qubit %d outside register of %d", ErrInvalidGate, q, s.qubits)
		}
	}
	for _, t := range g.Targets {
		if controlMask(g.Controls)&(1<<t) != 0 {
			return fmt.Errorf("%w: qubit %d is both control and target", ErrInvalidGate, t)
		}
	}

	switch g.Kind {
	case domain.GateSuperposition:
		for _, t := range g.Targets {
			s.applyH(t)
		}
	case domain.GateToggle:
		for _, t := range g.Targets {
			s.applyControlledX(0, t)
		}
	case domain.GateControlledToggle:
		if len(g.Targets) != 1 {
			return fmt.Errorf("%w: controlled toggle needs one target", ErrInvalidGate)
		}
		s.applyControlledX(controlMask(g.Controls), g.Targets[0])
	case domain.GateControlledRotation:
		if len(g.Targets) != 1 {
			return fmt.Errorf("%w: controlled rotation needs one target", ErrInvalidGate)
		}
		s.applyControlledRY(controlMask(g.Controls), g.Targets[0], g.Angle)
	case domain.GateBarrier, domain.GateMeasure:
		// measurement is deferred to the end of the sequence
	default:
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidGate, g.Kind)
	}
	return nil
}

func (s *stateVector) applyH(q int) {
	bit := 1 << q
	for i := range s.amplitudes {
		if i&bit != 0 {
			continue
		}
		a0, a1 := s.amplitudes[i], s.amplitudes[i|bit]
		s.amplitudes[i] = (a0 + a1) * math.Sqrt2 / 2
		s.amplitudes[i|bit] = (a0 - a1) * math.Sqrt2 / 2
	}
}

func (s *stateVector) applyControlledX(controls, target int) {
	bit := 1 << target
	for i := range s.amplitudes {
		if i&bit != 0 || i&controls != controls {
			continue
		}
		s.amplitudes[i], s.amplitudes[i|bit] = s.amplitudes[i|bit], s.amplitudes[i]
	}
}

func (s *stateVector) applyControlledRY(controls, target int, theta float64) {
	c, sn := math.Cos(theta/2), math.Sin(theta/2)
	bit := 1 << target
	for i := range s.amplitudes {
		if i&bit != 0 || i&controls != controls {
			continue
		}
		a0, a1 := s.amplitudes[i], s.amplitudes[i|bit]
		s.amplitudes[i] = c*a0 - sn*a1
		s.amplitudes[i|bit] = sn*a0 + c*a1
	}
}

// probabilities returns |amplitude|^2 per basis index
func (s *stateVector) probabilities() []float64 {
	out := make([]float64, len(s.amplitudes))
	for i, a := range s.amplitudes {
		out[i] = a * a
	}
	return out
}

func controlMask(controls []int) int {
	mask := 0
	for _, c := range controls {
		mask |= 1 << c
	}
	return mask
}
