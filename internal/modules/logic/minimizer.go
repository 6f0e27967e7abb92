package logic

import (
	"fmt"
	"sort"
)

// Predicate is a disjunction of cubes over a Width-bit index space.
// An empty term list is constant false.
type Predicate struct {
	Width int
	Terms []Cube
}

// Evaluate reports whether x satisfies any term
func (p Predicate) Evaluate(x uint64) bool {
	for _, c := range p.Terms {
		if c.Covers(x) {
			return true
		}
	}
	return false
}

// Strings renders every term MSB first
func (p Predicate) Strings() []string {
	out := make([]string, len(p.Terms))
	for i, c := range p.Terms {
		out[i] = c.String(p.Width)
	}
	return out
}

// Minterms returns the on-set in ascending order
func (p Predicate) Minterms() []uint64 {
	seen := make(map[uint64]struct{})
	for _, c := range p.Terms {
		for _, m := range c.Minterms(p.Width) {
			seen[m] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Disjoint rewrites the terms into pairwise disjoint cubes with the same
// on-set. Each term keeps the part not already claimed by earlier terms.
func (p Predicate) Disjoint() Predicate {
	out := make([]Cube, 0, len(p.Terms))
	for _, c := range p.Terms {
		pieces := []Cube{c}
		for _, claimed := range out {
			var next []Cube
			for _, piece := range pieces {
				next = append(next, sharp(piece, claimed, p.Width)...)
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		out = append(out, pieces...)
	}
	return Predicate{Width: p.Width, Terms: out}
}

// sharp returns a minus b as disjoint cubes, splitting on b's fixed bits from
// the most significant down
func sharp(a, b Cube, width int) []Cube {
	if !a.Intersects(b) {
		return []Cube{a}
	}
	var out []Cube
	cur := a
	for pos := width - 1; pos >= 0; pos-- {
		bit := uint64(1) << pos
		if b.Mask&bit == 0 || cur.Mask&bit != 0 {
			continue
		}
		out = append(out, newCube(cur.Value|(^b.Value&bit), cur.Mask|bit))
		cur = newCube(cur.Value|(b.Value&bit), cur.Mask|bit)
	}
	return out
}

// Minimize reduces a set of width-bit index strings to a prime cover
func Minimize(width int, on []string) (Predicate, error) {
	return MinimizeWithDontCares(width, on, nil)
}

// MinimizeWithDontCares is Minimize with extra minterms that may be used for
// merging but never need to be covered
func MinimizeWithDontCares(width int, on, dontCare []string) (Predicate, error) {
	if width < 0 || width > MaxWidth {
		return Predicate{}, fmt.Errorf("%w: %d", ErrWidthOutOfRange, width)
	}
	onSet, err := parseAll(on, width)
	if err != nil {
		return Predicate{}, err
	}
	dcSet, err := parseAll(dontCare, width)
	if err != nil {
		return Predicate{}, err
	}
	return MinimizeIndices(width, onSet, dcSet)
}

// MinimizeIndices minimizes integer minterms directly. Duplicates and order
// do not affect the result.
func MinimizeIndices(width int, on, dontCare []uint64) (Predicate, error) {
	if width < 0 || width > MaxWidth {
		return Predicate{}, fmt.Errorf("%w: %d", ErrWidthOutOfRange, width)
	}
	limit := fullMask(width)
	onSet := make(map[uint64]struct{}, len(on))
	for _, m := range on {
		if m > limit {
			return Predicate{}, fmt.Errorf("%w: %d does not fit %d bits", ErrIndexOutOfRange, m, width)
		}
		onSet[m] = struct{}{}
	}
	if len(onSet) == 0 {
		return Predicate{Width: width}, nil
	}

	all := make(map[uint64]struct{}, len(onSet)+len(dontCare))
	for m := range onSet {
		all[m] = struct{}{}
	}
	for _, m := range dontCare {
		if m > limit {
			return Predicate{}, fmt.Errorf("%w: %d does not fit %d bits", ErrIndexOutOfRange, m, width)
		}
		all[m] = struct{}{}
	}

	primes := primeImplicants(width, sortedKeys(all))
	cover := selectCover(primes, sortedKeys(onSet))
	return Predicate{Width: width, Terms: cover}, nil
}

// primeImplicants runs the Quine-McCluskey merge passes and returns every
// cube that could not be merged further, in cube order
func primeImplicants(width int, minterms []uint64) []Cube {
	full := fullMask(width)
	current := make(map[Cube]struct{}, len(minterms))
	for _, m := range minterms {
		current[Cube{Value: m, Mask: full}] = struct{}{}
	}

	var primes []Cube
	for len(current) > 0 {
		next := make(map[Cube]struct{})
		merged := make(map[Cube]bool, len(current))
		for c := range current {
			for pos := 0; pos < width; pos++ {
				bit := uint64(1) << pos
				if c.Mask&bit == 0 || c.Value&bit != 0 {
					continue
				}
				partner := Cube{Value: c.Value | bit, Mask: c.Mask}
				if _, ok := current[partner]; !ok {
					continue
				}
				merged[c] = true
				merged[partner] = true
				next[newCube(c.Value, c.Mask&^bit)] = struct{}{}
			}
		}
		for c := range current {
			if !merged[c] {
				primes = append(primes, c)
			}
		}
		current = next
	}

	sort.Slice(primes, func(i, j int) bool { return primes[i].less(primes[j]) })
	return primes
}

// selectCover picks essential primes first, then greedily adds the prime
// covering the most uncovered minterms (fewer literals, then cube order on
// ties). The result is returned in cube order.
func selectCover(primes []Cube, on []uint64) []Cube {
	uncovered := make(map[uint64]struct{}, len(on))
	for _, m := range on {
		uncovered[m] = struct{}{}
	}
	chosen := make([]bool, len(primes))

	take := func(i int) {
		chosen[i] = true
		for m := range uncovered {
			if primes[i].Covers(m) {
				delete(uncovered, m)
			}
		}
	}

	for _, m := range on {
		only := -1
		for i, p := range primes {
			if !p.Covers(m) {
				continue
			}
			if only >= 0 {
				only = -1
				break
			}
			only = i
		}
		if only >= 0 && !chosen[only] {
			take(only)
		}
	}

	for len(uncovered) > 0 {
		best, bestGain := -1, 0
		for i, p := range primes {
			if chosen[i] {
				continue
			}
			gain := 0
			for m := range uncovered {
				if p.Covers(m) {
					gain++
				}
			}
			if gain == 0 {
				continue
			}
			if gain > bestGain || (gain == bestGain && p.Literals() < primes[best].Literals()) {
				best, bestGain = i, gain
			}
		}
		take(best)
	}

	var cover []Cube
	for i, p := range primes {
		if chosen[i] {
			cover = append(cover, p)
		}
	}
	return cover
}

func parseAll(terms []string, width int) ([]uint64, error) {
	out := make([]uint64, 0, len(terms))
	for _, s := range terms {
		m, err := parseMinterm(s, width)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func sortedKeys(set map[uint64]struct{}) []uint64 {
	out := make([]uint64, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
