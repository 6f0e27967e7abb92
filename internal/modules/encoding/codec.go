// Package encoding maps pixel intensities to rotation angles and groups pixel
// positions by quantized intensity.
package encoding

import (
	"math"

	"github.com/aristath/qpixel/internal/domain"
)

// truncationSlack absorbs float round-off before truncating to an integer
// intensity, so 127.99999999 decodes as 128 rather than 127
const truncationSlack = 1e-6

// IntensityToAngle maps a pixel in [0, 255] linearly onto [0, π/2]
func IntensityToAngle(pixel float64) float64 {
	return pixel / domain.MaxIntensity * (math.Pi / 2)
}

// AngleToIntensity is the inverse linear map, truncated toward zero.
// Angles outside [0, π/2] are not validated; callers clip first.
func AngleToIntensity(angle float64) int {
	return int(angle/(math.Pi/2)*domain.MaxIntensity + truncationSlack)
}

// AngleTable returns one angle per addressable cell of the layout, row-major,
// padded with zero angles up to layout.Cells
func AngleTable(img domain.Image, layout domain.Layout) ([]float64, error) {
	if err := img.Validate(layout.Side); err != nil {
		return nil, err
	}
	table := make([]float64, layout.Cells)
	for i, pixel := range img.Flatten() {
		table[i] = IntensityToAngle(pixel)
	}
	return table, nil
}
