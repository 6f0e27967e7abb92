package decoding

import (
	"math"
	"testing"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/aristath/qpixel/internal/modules/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyticShots = 1 << 40

// analyticHistogram builds the noiseless histogram of the encoded state: each
// cell carries cos(theta)|0> + sin(theta)|1> with weight 1/M
func analyticHistogram(t *testing.T, img domain.Image) (domain.Histogram, domain.Layout) {
	t.Helper()
	layout, err := domain.NewLayout(img.Side())
	require.NoError(t, err)
	table, err := encoding.AngleTable(img, layout)
	require.NoError(t, err)

	hist := make(domain.Histogram)
	cells := float64(layout.Cells)
	for i, theta := range table {
		cosKey, sinKey := BranchKeys(i, layout)
		if c := int(math.Round(math.Pow(math.Cos(theta), 2) / cells * analyticShots)); c > 0 {
			hist[cosKey] = c
		}
		if c := int(math.Round(math.Pow(math.Sin(theta), 2) / cells * analyticShots)); c > 0 {
			hist[sinKey] = c
		}
	}
	return hist, layout
}

func TestBranchKeys(t *testing.T) {
	layout, err := domain.NewLayout(4)
	require.NoError(t, err)

	cosKey, sinKey := BranchKeys(1, layout)
	assert.Equal(t, "01000", cosKey)
	assert.Equal(t, "11000", sinKey)

	cosKey, _ = BranchKeys(6, layout)
	assert.Equal(t, "00110", cosKey)
}

func TestDecode_AnalyticHistograms(t *testing.T) {
	gradient := domain.NewImage(5)
	for r := range gradient {
		for c := range gradient[r] {
			gradient[r][c] = float64((r*5 + c) * 10)
		}
	}
	checkerboard := domain.NewImage(4)
	for r := range checkerboard {
		for c := range checkerboard[r] {
			if (r+c)%2 == 0 {
				checkerboard[r][c] = 255
			}
		}
	}

	images := map[string]domain.Image{
		"gradient":     gradient,
		"checkerboard": checkerboard,
	}

	for name, img := range images {
		for _, tb := range []TieBreak{TieBreakDominant, TieBreakAverage, TieBreakRatio} {
			t.Run(name+"/"+string(tb), func(t *testing.T) {
				hist, layout := analyticHistogram(t, img)
				dec, err := NewDecoder(tb)
				require.NoError(t, err)

				out, err := dec.Decode(hist, layout.Qubits, img.Side())
				require.NoError(t, err)
				require.Equal(t, img.Side(), out.Side())
				for r := range img {
					for c := range img[r] {
						assert.InDelta(t, img[r][c], out[r][c], 1, "pixel (%d,%d)", r, c)
					}
				}
			})
		}
	}
}

func TestDecode_DominantExact(t *testing.T) {
	img := domain.Image{{0, 128}, {200, 255}}
	hist, layout := analyticHistogram(t, img)

	dec, err := NewDecoder(TieBreakDominant)
	require.NoError(t, err)
	out, err := dec.Decode(hist, layout.Qubits, 2)
	require.NoError(t, err)
	assert.Equal(t, img, out)
}

func TestDecode_MissingKeysAreZero(t *testing.T) {
	// only cell 0 observed, fully in the sine branch
	layout, err := domain.NewLayout(2)
	require.NoError(t, err)
	_, sinKey := BranchKeys(0, layout)

	dec, err := NewDecoder("")
	require.NoError(t, err)
	out, err := dec.Decode(domain.Histogram{sinKey: 10}, layout.Qubits, 2)
	require.NoError(t, err)

	// scale * sqrt(1) clips to 1, asin(1) = pi/2
	assert.Equal(t, 255.0, out[0][0])
	assert.Equal(t, 0.0, out[0][1])
	assert.Equal(t, 0.0, out[1][1])
}

func TestDecode_Errors(t *testing.T) {
	dec, err := NewDecoder(TieBreakDominant)
	require.NoError(t, err)

	_, err = dec.Decode(domain.Histogram{}, 3, 2)
	assert.ErrorIs(t, err, domain.ErrEmptyHistogram)

	_, err = dec.Decode(domain.Histogram{"000": 0}, 3, 2)
	assert.ErrorIs(t, err, domain.ErrEmptyHistogram)

	_, err = dec.Decode(domain.Histogram{"0000": 1}, 3, 2)
	assert.ErrorIs(t, err, domain.ErrMalformedHistogram)

	_, err = dec.Decode(domain.Histogram{"0x0": 1}, 3, 2)
	assert.ErrorIs(t, err, domain.ErrMalformedHistogram)

	_, err = dec.Decode(domain.Histogram{"000": -1, "001": 4}, 3, 2)
	assert.ErrorIs(t, err, domain.ErrMalformedHistogram)

	_, err = dec.Decode(domain.Histogram{"000": 1}, 3, 4)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = NewDecoder("majority")
	assert.ErrorIs(t, err, ErrUnknownTieBreak)
}

func TestTieBreaks_DisagreeOnNoisyCell(t *testing.T) {
	// a single cell (side 1) whose branches are inconsistent
	hist := domain.Histogram{"0": 30, "1": 30}

	dominant, _ := NewDecoder(TieBreakDominant)
	average, _ := NewDecoder(TieBreakAverage)
	ratio, _ := NewDecoder(TieBreakRatio)

	a, err := dominant.Angles(hist, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, a[0], 1e-12)

	b, err := average.Angles(hist, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, b[0], 1e-12)

	c, err := ratio.Angles(hist, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/4, c[0], 1e-12)

	// skewed: 3 cos vs 1 sin
	hist = domain.Histogram{"0": 3, "1": 1}
	a, _ = dominant.Angles(hist, 1, 1)
	assert.InDelta(t, math.Acos(math.Sqrt(0.75)), a[0], 1e-12)
	c, _ = ratio.Angles(hist, 1, 1)
	assert.InDelta(t, math.Atan2(math.Sqrt(0.25), math.Sqrt(0.75)), c[0], 1e-12)
}
