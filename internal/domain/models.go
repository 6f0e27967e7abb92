// Package domain provides core domain models and types.
package domain

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// MaxIntensity is the upper bound of a normalized pixel intensity
const MaxIntensity = 255.0

var (
	// ErrDimensionMismatch is returned when an image is not square or its side
	// does not match the configured layout
	ErrDimensionMismatch = errors.New("image dimension mismatch")
	// ErrIntensityOutOfRange is returned when a pixel lies outside [0, 255]
	ErrIntensityOutOfRange = errors.New("pixel intensity out of range")
	// ErrInvalidSide is returned for image sides smaller than one pixel
	ErrInvalidSide = errors.New("image side must be at least 1")
)

// Image is a square grid of intensities in [0, 255], indexed [row][col]
type Image [][]float64

// NewImage allocates a zeroed side x side image
func NewImage(side int) Image {
	img := make(Image, side)
	for i := range img {
		img[i] = make([]float64, side)
	}
	return img
}

// ImageFromFlat reshapes a row-major slice into a side x side image.
// Extra values beyond side*side are ignored.
func ImageFromFlat(values []float64, side int) (Image, error) {
	if side < 1 {
		return nil, ErrInvalidSide
	}
	if len(values) < side*side {
		return nil, fmt.Errorf("%w: need %d values, got %d", ErrDimensionMismatch, side*side, len(values))
	}
	img := NewImage(side)
	for r := 0; r < side; r++ {
		copy(img[r], values[r*side:(r+1)*side])
	}
	return img, nil
}

// Side returns the side length of the image (number of rows)
func (img Image) Side() int {
	return len(img)
}

// Validate checks that the image is square with the given side and that every
// pixel lies in [0, 255]
func (img Image) Validate(side int) error {
	if len(img) != side {
		return fmt.Errorf("%w: expected %d rows, got %d", ErrDimensionMismatch, side, len(img))
	}
	for r, row := range img {
		if len(row) != side {
			return fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimensionMismatch, r, len(row), side)
		}
		for c, v := range row {
			if math.IsNaN(v) || v < 0 || v > MaxIntensity {
				return fmt.Errorf("%w: pixel (%d,%d) = %v", ErrIntensityOutOfRange, r, c, v)
			}
		}
	}
	return nil
}

// Flatten returns the pixels in row-major order
func (img Image) Flatten() []float64 {
	out := make([]float64, 0, len(img)*len(img))
	for _, row := range img {
		out = append(out, row...)
	}
	return out
}

// Clone returns a deep copy of the image
func (img Image) Clone() Image {
	out := make(Image, len(img))
	for i, row := range img {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Sample is one dataset item handed to the grader
type Sample struct {
	ID    string `json:"id" msgpack:"id"`
	Label string `json:"label,omitempty" msgpack:"label,omitempty"`
	Image Image  `json:"image" msgpack:"image"`
}

// Layout holds the qubit budget derived from an image side length.
//
// Index qubit k carries bit (IndexQubits-1-k) of a cell index, so qubit 0 is
// the most significant bit. The value qubit is always the last one.
type Layout struct {
	Side        int // S
	Pixels      int // P = S*S
	AxisQubits  int // N = ceil(log2 S)
	IndexQubits int // 2N
	IndexBits   int // B = ceil(log2 P)
	Qubits      int // Q = 2N + 1
	Cells       int // M = 2^(2N)
}

// NewLayout derives the qubit budget for a side x side image
func NewLayout(side int) (Layout, error) {
	if side < 1 {
		return Layout{}, ErrInvalidSide
	}
	pixels := side * side
	n := ceilLog2(side)
	if 2*n >= 62 {
		return Layout{}, fmt.Errorf("image side %d is too large to address", side)
	}
	return Layout{
		Side:        side,
		Pixels:      pixels,
		AxisQubits:  n,
		IndexQubits: 2 * n,
		IndexBits:   ceilLog2(pixels),
		Qubits:      2*n + 1,
		Cells:       1 << (2 * n),
	}, nil
}

// ValueQubit returns the index of the qubit carrying the rotation amplitude
func (l Layout) ValueQubit() int {
	return l.Qubits - 1
}

// QubitForBit maps an index bit position (0 = least significant) to its qubit
func (l Layout) QubitForBit(bit int) int {
	return l.IndexQubits - 1 - bit
}

// BitForQubit maps an index qubit back to the index bit it carries
func (l Layout) BitForQubit(qubit int) int {
	return l.IndexQubits - 1 - qubit
}

// AmplitudeScale is 2^N, the factor that undoes the uniform superposition
// weight of a single cell (1/sqrt(M))
func (l Layout) AmplitudeScale() float64 {
	return float64(uint64(1) << l.AxisQubits)
}

func ceilLog2(v int) int {
	if v <= 1 {
		return 0
	}
	return bits.Len(uint(v - 1))
}
