package encoding

import (
	"math"
	"testing"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntensityToAngle(t *testing.T) {
	tests := []struct {
		name     string
		pixel    float64
		expected float64
	}{
		{"black", 0, 0},
		{"white", 255, math.Pi / 2},
		{"mid grey", 127.5, math.Pi / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, IntensityToAngle(tt.pixel), 1e-12)
		})
	}
}

func TestAngleToIntensity_RoundTrip(t *testing.T) {
	for pixel := 0; pixel <= 255; pixel++ {
		got := AngleToIntensity(IntensityToAngle(float64(pixel)))
		assert.LessOrEqual(t, math.Abs(float64(got-pixel)), 1.0, "pixel %d decoded as %d", pixel, got)
	}
}

func TestAngleToIntensity_Truncates(t *testing.T) {
	// 100.7 worth of angle truncates to 100
	angle := IntensityToAngle(100.7)
	assert.Equal(t, 100, AngleToIntensity(angle))
	assert.Equal(t, 255, AngleToIntensity(math.Pi/2))
	assert.Equal(t, 0, AngleToIntensity(0))
}

func TestAngleTable_PadsWithZero(t *testing.T) {
	layout, err := domain.NewLayout(3)
	require.NoError(t, err)

	img := domain.Image{{255, 255, 255}, {0, 0, 0}, {255, 0, 255}}
	table, err := AngleTable(img, layout)
	require.NoError(t, err)

	require.Len(t, table, layout.Cells)
	assert.InDelta(t, math.Pi/2, table[0], 1e-12)
	assert.Equal(t, 0.0, table[3])
	assert.InDelta(t, math.Pi/2, table[8], 1e-12)
	for i := layout.Pixels; i < layout.Cells; i++ {
		assert.Equal(t, 0.0, table[i], "padding cell %d", i)
	}
}

func TestAngleTable_RejectsMismatchedImage(t *testing.T) {
	layout, err := domain.NewLayout(4)
	require.NoError(t, err)

	_, err = AngleTable(domain.NewImage(3), layout)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
