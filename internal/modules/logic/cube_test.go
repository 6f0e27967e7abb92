package logic

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	c, err := ParseTerm("1-0")
	require.NoError(t, err)
	assert.Equal(t, Cube{Value: 0b100, Mask: 0b101}, c)
	assert.Equal(t, "1-0", c.String(3))
	assert.Equal(t, 2, c.Literals())
	assert.Equal(t, uint64(2), c.Size(3))

	_, err = ParseTerm("1?0")
	assert.ErrorIs(t, err, ErrMalformedTerm)
}

func TestCube_Minterms(t *testing.T) {
	c, err := ParseTerm("-1-")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 6, 7}, c.Minterms(3))

	full, err := ParseTerm("101")
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, full.Minterms(3))
}

func TestCube_Relations(t *testing.T) {
	a, _ := ParseTerm("1--")
	b, _ := ParseTerm("-1-")
	c, _ := ParseTerm("0-1")
	d, _ := ParseTerm("11-")

	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(c))
	assert.True(t, a.Contains(d))
	assert.False(t, d.Contains(a))
}

func TestPredicate_Disjoint(t *testing.T) {
	t.Run("overlapping cover", func(t *testing.T) {
		p, err := Minimize(3, []string{"001", "011", "101", "111", "110"})
		require.NoError(t, err)
		assertDisjointCover(t, p, p.Disjoint())
	})

	t.Run("random covers", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for trial := 0; trial < 50; trial++ {
			var on []uint64
			for x := uint64(0); x < 64; x++ {
				if rng.IntN(2) == 0 {
					on = append(on, x)
				}
			}
			p, err := MinimizeIndices(6, on, nil)
			require.NoError(t, err)
			assertDisjointCover(t, p, p.Disjoint())
		}
	})

	t.Run("already disjoint is unchanged", func(t *testing.T) {
		p, err := Minimize(3, []string{"000", "111"})
		require.NoError(t, err)
		assert.Equal(t, p.Strings(), p.Disjoint().Strings())
	})
}

func assertDisjointCover(t *testing.T, original, disjoint Predicate) {
	t.Helper()
	space := uint64(1) << original.Width
	for x := uint64(0); x < space; x++ {
		hits := 0
		for _, c := range disjoint.Terms {
			if c.Covers(x) {
				hits++
			}
		}
		if original.Evaluate(x) {
			assert.Equal(t, 1, hits, "minterm %d covered %d times", x, hits)
		} else {
			assert.Equal(t, 0, hits, "minterm %d should not be covered", x)
		}
	}
}
