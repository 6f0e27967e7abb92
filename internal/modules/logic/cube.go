// Package logic provides two-level boolean minimization over fixed-width
// index spaces.
package logic

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// DontCare is the character used for an unconstrained bit in a term string
const DontCare = '-'

// MaxWidth is the widest index space the minimizer accepts
const MaxWidth = 62

var (
	// ErrMalformedTerm is returned for strings of the wrong width or with
	// characters outside the accepted alphabet
	ErrMalformedTerm = errors.New("malformed term")
	// ErrWidthOutOfRange is returned for widths outside [0, MaxWidth]
	ErrWidthOutOfRange = errors.New("width out of range")
	// ErrIndexOutOfRange is returned for minterms that do not fit the width
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Cube is a product term. Bits set in Mask are fixed to the matching bit of
// Value; the remaining bits are free. Value is always zero outside Mask.
type Cube struct {
	Value uint64
	Mask  uint64
}

func newCube(value, mask uint64) Cube {
	return Cube{Value: value & mask, Mask: mask}
}

// Covers reports whether the minterm x satisfies the cube
func (c Cube) Covers(x uint64) bool {
	return x&c.Mask == c.Value
}

// Intersects reports whether the two cubes share at least one minterm
func (c Cube) Intersects(o Cube) bool {
	return (c.Value^o.Value)&c.Mask&o.Mask == 0
}

// Contains reports whether every minterm of o also satisfies c
func (c Cube) Contains(o Cube) bool {
	return c.Mask&o.Mask == c.Mask && o.Value&c.Mask == c.Value
}

// Literals is the number of fixed bits
func (c Cube) Literals() int {
	return bits.OnesCount64(c.Mask)
}

// Size is the number of minterms the cube covers in a width-bit space
func (c Cube) Size(width int) uint64 {
	return uint64(1) << (width - c.Literals())
}

// String renders the cube MSB first using 0, 1 and '-'
func (c Cube) String(width int) string {
	var sb strings.Builder
	sb.Grow(width)
	for pos := width - 1; pos >= 0; pos-- {
		b := uint64(1) << pos
		switch {
		case c.Mask&b == 0:
			sb.WriteByte(DontCare)
		case c.Value&b != 0:
			sb.WriteByte('1')
		default:
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Minterms enumerates every minterm of the cube in ascending order
func (c Cube) Minterms(width int) []uint64 {
	free := fullMask(width) &^ c.Mask
	out := make([]uint64, 0, c.Size(width))
	// walk the subsets of free in ascending order
	sub := uint64(0)
	for {
		out = append(out, c.Value|sub)
		if sub == free {
			break
		}
		sub = (sub - free) & free
	}
	return out
}

// less orders cubes by value, then by mask
func (c Cube) less(o Cube) bool {
	if c.Value != o.Value {
		return c.Value < o.Value
	}
	return c.Mask < o.Mask
}

// ParseTerm parses a term string (MSB first) made of 0, 1 and '-'
func ParseTerm(s string) (Cube, error) {
	if len(s) > MaxWidth {
		return Cube{}, fmt.Errorf("%w: %d bits", ErrWidthOutOfRange, len(s))
	}
	var c Cube
	for i := 0; i < len(s); i++ {
		b := uint64(1) << (len(s) - 1 - i)
		switch s[i] {
		case '0':
			c.Mask |= b
		case '1':
			c.Mask |= b
			c.Value |= b
		case DontCare:
		default:
			return Cube{}, fmt.Errorf("%w: %q contains %q", ErrMalformedTerm, s, s[i])
		}
	}
	return c, nil
}

// parseMinterm parses a fully specified width-bit binary string
func parseMinterm(s string, width int) (uint64, error) {
	if len(s) != width {
		return 0, fmt.Errorf("%w: %q has %d bits, expected %d", ErrMalformedTerm, s, len(s), width)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		v <<= 1
		switch s[i] {
		case '0':
		case '1':
			v |= 1
		default:
			return 0, fmt.Errorf("%w: %q contains %q", ErrMalformedTerm, s, s[i])
		}
	}
	return v, nil
}

func fullMask(width int) uint64 {
	return (uint64(1) << width) - 1
}
