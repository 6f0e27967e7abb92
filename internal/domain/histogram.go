package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistogram is returned when a histogram has no shots at all
	ErrEmptyHistogram = errors.New("histogram is empty")
	// ErrMalformedHistogram is returned for bad keys or negative counts
	ErrMalformedHistogram = errors.New("malformed histogram")
)

// Histogram maps an outcome bitstring to its number of occurrences.
// Keys list qubit Q-1 first and qubit 0 last.
type Histogram map[string]int

// Total returns the number of shots recorded in the histogram
func (h Histogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Validate checks that every key is a width-bit binary string, that counts
// are non-negative and that at least one shot was recorded
func (h Histogram) Validate(width int) error {
	if len(h) == 0 {
		return ErrEmptyHistogram
	}
	total := 0
	for key, count := range h {
		if len(key) != width {
			return fmt.Errorf("%w: key %q has %d bits, expected %d", ErrMalformedHistogram, key, len(key), width)
		}
		for _, ch := range key {
			if ch != '0' && ch != '1' {
				return fmt.Errorf("%w: key %q is not binary", ErrMalformedHistogram, key)
			}
		}
		if count < 0 {
			return fmt.Errorf("%w: key %q has negative count %d", ErrMalformedHistogram, key, count)
		}
		total += count
	}
	if total == 0 {
		return ErrEmptyHistogram
	}
	return nil
}
