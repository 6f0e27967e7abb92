package circuit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
)

const (
	qasmVersion = "OPENQASM 3.0;"
	qasmInclude = `include "stdgates.inc";`
)

// ToQASM renders a gate sequence as an OpenQASM 3 program. Rotations with two
// or more controls use the ctrl(n) @ ry modifier.
func ToQASM(seq domain.GateSequence) (string, error) {
	var sb strings.Builder
	sb.WriteString(qasmVersion + "\n")
	sb.WriteString(qasmInclude + "\n\n")
	sb.WriteString(fmt.Sprintf("qubit[%d] q;\n", seq.Qubits))
	sb.WriteString(fmt.Sprintf("bit[%d] c;\n\n", seq.Qubits))

	for i, g := range seq.Gates {
		line, err := qasmLine(g)
		if err != nil {
			return "", fmt.Errorf("gate %d: %w", i, err)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String(), nil
}

func qasmLine(g domain.Gate) (string, error) {
	switch g.Kind {
	case domain.GateSuperposition:
		return fmt.Sprintf("h %s;", qubitList(g.Targets)), nil
	case domain.GateToggle:
		return fmt.Sprintf("x %s;", qubitList(g.Targets)), nil
	case domain.GateControlledToggle:
		if len(g.Controls) == 1 {
			return fmt.Sprintf("cx %s;", qubitList(g.Qubits())), nil
		}
		return fmt.Sprintf("ctrl(%d) @ x %s;", len(g.Controls), qubitList(g.Qubits())), nil
	case domain.GateControlledRotation:
		angle := strconv.FormatFloat(g.Angle, 'g', -1, 64)
		switch len(g.Controls) {
		case 0:
			return fmt.Sprintf("ry(%s) %s;", angle, qubitList(g.Targets)), nil
		case 1:
			return fmt.Sprintf("cry(%s) %s;", angle, qubitList(g.Qubits())), nil
		default:
			return fmt.Sprintf("ctrl(%d) @ ry(%s) %s;", len(g.Controls), angle, qubitList(g.Qubits())), nil
		}
	case domain.GateBarrier:
		return fmt.Sprintf("barrier %s;", qubitList(g.Targets)), nil
	case domain.GateMeasure:
		if len(g.Targets) != 1 {
			return "", fmt.Errorf("measure expects one target, got %d", len(g.Targets))
		}
		return fmt.Sprintf("c[%d] = measure q[%d];", g.Targets[0], g.Targets[0]), nil
	default:
		return "", fmt.Errorf("unsupported gate kind %q", g.Kind)
	}
}

func qubitList(qubits []int) string {
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(parts, ", ")
}
