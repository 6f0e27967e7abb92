// Package decoding reconstructs images from measurement histograms.
package decoding

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/modules/encoding"
)

// TieBreak decides which branch recovers a cell angle when both the cosine
// and the sine branch were observed
type TieBreak string

const (
	// TieBreakDominant uses the branch with more counts; equal non-zero counts
	// use the cosine branch
	TieBreakDominant TieBreak = "dominant"
	// TieBreakAverage averages the angles of the observed branches
	TieBreakAverage TieBreak = "average"
	// TieBreakRatio uses atan2 of the two branch amplitudes, which cancels the
	// per-cell normalization
	TieBreakRatio TieBreak = "ratio"
)

// ErrUnknownTieBreak is returned for unsupported tie-break names
var ErrUnknownTieBreak = errors.New("unknown tie-break rule")

// ParseTieBreak resolves a configured tie-break name; empty means dominant
func ParseTieBreak(name string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(name))); tb {
	case "":
		return TieBreakDominant, nil
	case TieBreakDominant, TieBreakAverage, TieBreakRatio:
		return tb, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTieBreak, name)
	}
}

// Decoder inverts histograms back into images
type Decoder struct {
	tieBreak TieBreak
}

// NewDecoder creates a decoder using the given tie-break rule
func NewDecoder(tieBreak TieBreak) (*Decoder, error) {
	tb, err := ParseTieBreak(string(tieBreak))
	if err != nil {
		return nil, err
	}
	return &Decoder{tieBreak: tb}, nil
}

// TieBreak returns the configured tie-break rule
func (d *Decoder) TieBreak() TieBreak {
	return d.tieBreak
}

// Decode reconstructs a side x side image from hist. qubits must match the
// layout derived from side.
func (d *Decoder) Decode(hist domain.Histogram, qubits, side int) (domain.Image, error) {
	angles, layout, err := d.Angles(hist, qubits, side)
	if err != nil {
		return nil, err
	}

	flat := make([]float64, layout.Pixels)
	for i := range flat {
		flat[i] = float64(min(encoding.AngleToIntensity(angles[i]), int(domain.MaxIntensity)))
	}
	return domain.ImageFromFlat(flat, side)
}

// Angles recovers one rotation angle per addressable cell, padding included
func (d *Decoder) Angles(hist domain.Histogram, qubits, side int) ([]float64, domain.Layout, error) {
	layout, err := domain.NewLayout(side)
	if err != nil {
		return nil, domain.Layout{}, err
	}
	if qubits != layout.Qubits {
		return nil, domain.Layout{}, fmt.Errorf("%w: side %d needs %d qubits, histogram has %d",
			domain.ErrDimensionMismatch, side, layout.Qubits, qubits)
	}
	if err := hist.Validate(qubits); err != nil {
		return nil, domain.Layout{}, err
	}

	total := float64(hist.Total())
	scale := layout.AmplitudeScale()
	angles := make([]float64, layout.Cells)
	for i := range angles {
		cosKey, sinKey := BranchKeys(i, layout)
		cosCount, sinCount := hist[cosKey], hist[sinKey]
		angles[i] = d.angle(cosCount, sinCount, total, scale)
	}
	return angles, layout, nil
}

func (d *Decoder) angle(cosCount, sinCount int, total, scale float64) float64 {
	pCos := float64(cosCount) / total
	pSin := float64(sinCount) / total
	thetaCos := math.Acos(clip(scale * math.Sqrt(pCos)))
	thetaSin := math.Asin(clip(scale * math.Sqrt(pSin)))

	switch d.tieBreak {
	case TieBreakAverage:
		switch {
		case cosCount > 0 && sinCount > 0:
			return (thetaCos + thetaSin) / 2
		case sinCount > 0:
			return thetaSin
		case cosCount > 0:
			return thetaCos
		}
		return 0
	case TieBreakRatio:
		return math.Atan2(math.Sqrt(pSin), math.Sqrt(pCos))
	default:
		switch {
		case sinCount > cosCount:
			return thetaSin
		case cosCount > 0:
			return thetaCos
		}
		return 0
	}
}

// BranchKeys returns the histogram keys of the cosine and sine branch of
// cell i: the value bit followed by the index bits least significant first
func BranchKeys(i int, layout domain.Layout) (cosKey, sinKey string) {
	var sb strings.Builder
	sb.Grow(layout.IndexQubits)
	for bit := 0; bit < layout.IndexQubits; bit++ {
		if i&(1<<bit) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	rev := sb.String()
	return "0" + rev, "1" + rev
}

func clip(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
