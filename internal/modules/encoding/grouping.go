package encoding

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
)

// QuantizationStep is the bucket width used when grouping intensities
const QuantizationStep = 10.0

// IntensityGroup holds every pixel position sharing one quantized intensity.
// Mean is the average of the unquantized member intensities.
type IntensityGroup struct {
	Intensity float64  `json:"intensity"`
	Mean      float64  `json:"mean"`
	Indices   []int    `json:"indices"`
	Bits      []string `json:"bits"`
}

// Quantize rounds an intensity to the nearest multiple of QuantizationStep
// (halves go to the even multiple) and clamps the result to [0, 255]
func Quantize(pixel float64) float64 {
	q := math.RoundToEven(pixel/QuantizationStep) * QuantizationStep
	return math.Max(0, math.Min(domain.MaxIntensity, q))
}

// IndexBits renders a flattened pixel index as a zero-padded, MSB-first
// binary string of the given width
func IndexBits(index, width int) string {
	if width == 0 {
		return ""
	}
	s := strconv.FormatUint(uint64(index), 2)
	if len(s) >= width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// GroupByIntensity buckets pixel positions by quantized intensity.
// Groups come back in ascending intensity order, indices ascending within a
// group, each index also rendered as a layout.IndexBits-wide string.
func GroupByIntensity(img domain.Image, layout domain.Layout) ([]IntensityGroup, error) {
	if err := img.Validate(layout.Side); err != nil {
		return nil, err
	}

	byIntensity := make(map[float64]*IntensityGroup)
	for i, pixel := range img.Flatten() {
		q := Quantize(pixel)
		group, ok := byIntensity[q]
		if !ok {
			group = &IntensityGroup{Intensity: q}
			byIntensity[q] = group
		}
		group.Indices = append(group.Indices, i)
		group.Bits = append(group.Bits, IndexBits(i, layout.IndexBits))
		group.Mean += pixel
	}

	groups := make([]IntensityGroup, 0, len(byIntensity))
	for _, g := range byIntensity {
		g.Mean /= float64(len(g.Indices))
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Intensity < groups[j].Intensity
	})
	return groups, nil
}
