package circuit

import (
	"fmt"
	"math/bits"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/modules/encoding"
	"github.com/aristath/qpixel/internal/modules/logic"
)

// emitCells walks every cell in index order. The cumulative XOR of the toggle
// masks up to cell i equals i, and after the last cell every index qubit has
// been toggled, so measured labels line up with cell indices.
func (b *Builder) emitCells(e *emitter, img domain.Image) error {
	table, err := encoding.AngleTable(img, b.layout)
	if err != nil {
		return err
	}
	all := indexMask(b.layout)
	for i := range table {
		e.toggle(ToggleMask(uint64(i)))
		e.rotate(2*table[i], all)
		e.barrier()
	}
	return nil
}

// emitPredicates rotates whole intensity groups at once. Each group is
// minimized over the index bits with the padding cells as don't-cares and
// split into disjoint cubes, so every member cell receives exactly one
// rotation. Before each cube the toggle state is moved to agree with the
// cube on its fixed bits; a final layer brings it to all ones.
func (b *Builder) emitPredicates(e *emitter, img domain.Image) error {
	groups, err := encoding.GroupByIntensity(img, b.layout)
	if err != nil {
		return err
	}

	padding := make([]uint64, 0, b.layout.Cells-b.layout.Pixels)
	for i := b.layout.Pixels; i < b.layout.Cells; i++ {
		padding = append(padding, uint64(i))
	}

	for _, g := range groups {
		if g.Mean == 0 {
			continue
		}
		on := make([]uint64, len(g.Indices))
		for i, idx := range g.Indices {
			on[i] = uint64(idx)
		}
		pred, err := logic.MinimizeIndices(b.layout.IndexQubits, on, padding)
		if err != nil {
			return fmt.Errorf("failed to minimize group %v: %w", g.Intensity, err)
		}

		angle := 2 * encoding.IntensityToAngle(g.Mean)
		cubes := pred.Disjoint().Terms
		for _, c := range cubes {
			e.toggle((e.toggled ^ c.Value) & c.Mask)
			e.rotate(angle, c.Mask)
			e.barrier()
		}

		b.log.Debug().
			Float64("intensity", g.Intensity).
			Int("members", len(g.Indices)).
			Int("cubes", len(cubes)).
			Msg("Emitted intensity group")
	}

	e.toggle(e.toggled ^ indexMask(b.layout))
	return nil
}

// emitUniform emits the cell loop as a uniformly controlled RY on the value
// qubit: one unconditional rotation per cell, each followed by a CNOT whose
// control walks the index bits in Gray-code order. The rotation angles are
// the Walsh-Hadamard transform of the per-cell angles read in Gray order.
func (b *Builder) emitUniform(e *emitter, img domain.Image) error {
	table, err := encoding.AngleTable(img, b.layout)
	if err != nil {
		return err
	}

	k := b.layout.IndexQubits
	if k == 0 {
		e.rotate(2*table[0], 0)
		return nil
	}

	coeffs := make([]float64, len(table))
	for i, theta := range table {
		coeffs[i] = 2 * theta
	}
	walshHadamard(coeffs)

	cells := len(coeffs)
	for j := 0; j < cells; j++ {
		e.rotate(coeffs[gray(uint64(j))]/float64(cells), 0)
		control := k - 1
		if j < cells-1 {
			control = bits.TrailingZeros64(uint64(j + 1))
		}
		e.cnot(control)
	}
	return nil
}

// walshHadamard transforms v in place (unnormalized); len(v) must be a power of two
func walshHadamard(v []float64) {
	for h := 1; h < len(v); h <<= 1 {
		for i := 0; i < len(v); i += h << 1 {
			for j := i; j < i+h; j++ {
				a, b := v[j], v[j+h]
				v[j], v[j+h] = a+b, a-b
			}
		}
	}
}

func gray(j uint64) uint64 {
	return j ^ (j >> 1)
}

func indexMask(layout domain.Layout) uint64 {
	return (uint64(1) << layout.IndexQubits) - 1
}
