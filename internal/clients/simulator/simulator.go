// Package simulator provides an in-process statevector executor for gate
// sequences built from the abstract gate set.
package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mode selects how shot counts are produced from the final state
type Mode string

const (
	// ModeExact rounds probability x shots per outcome
	ModeExact Mode = "exact"
	// ModeSampled draws shots from the outcome distribution
	ModeSampled Mode = "sampled"
)

// DefaultMaxQubits bounds the register size (2^22 amplitudes, 32 MiB)
const DefaultMaxQubits = 22

var (
	// ErrTooManyQubits is returned when a sequence exceeds MaxQubits
	ErrTooManyQubits = errors.New("register exceeds simulator capacity")
	// ErrInvalidGate is returned for gates the simulator cannot apply
	ErrInvalidGate = errors.New("invalid gate")
	// ErrInvalidShots is returned for non-positive shot counts
	ErrInvalidShots = errors.New("shots must be positive")
	// ErrUnknownMode is returned for unsupported execution modes
	ErrUnknownMode = errors.New("unknown simulator mode")
)

// Config holds simulator settings
type Config struct {
	Mode      Mode
	Seed      uint64
	MaxQubits int
}

// Simulator executes gate sequences against a real-amplitude statevector
type Simulator struct {
	mode      Mode
	seed      uint64
	maxQubits int
	log       zerolog.Logger
}

// ParseMode resolves a configured mode name
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case ModeExact, ModeSampled:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// New creates a simulator
func New(cfg Config, log zerolog.Logger) (*Simulator, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	maxQubits := cfg.MaxQubits
	if maxQubits <= 0 {
		maxQubits = DefaultMaxQubits
	}
	return &Simulator{
		mode:      mode,
		seed:      cfg.Seed,
		maxQubits: maxQubits,
		log:       log.With().Str("client", "simulator").Str("mode", string(mode)).Logger(),
	}, nil
}

// Execute runs seq and returns a histogram keyed qubit Q-1 first.
// Only outcomes with a non-zero count appear in the histogram.
func (s *Simulator) Execute(ctx context.Context, seq domain.GateSequence, shots int) (domain.Histogram, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidShots, shots)
	}
	probs, err := s.Probabilities(ctx, seq)
	if err != nil {
		return nil, err
	}

	var hist domain.Histogram
	switch s.mode {
	case ModeExact:
		hist = exactCounts(probs, seq.Qubits, shots)
	case ModeSampled:
		stream, err := streamID(seq, shots)
		if err != nil {
			return nil, err
		}
		hist = sampledCounts(probs, seq.Qubits, shots, rand.NewPCG(s.seed, stream))
	}

	s.log.Debug().
		Int("qubits", seq.Qubits).
		Int("shots", shots).
		Int("outcomes", len(hist)).
		Msg("Executed gate sequence")

	return hist, nil
}

// Probabilities returns the outcome distribution over all 2^Q basis states
func (s *Simulator) Probabilities(ctx context.Context, seq domain.GateSequence) ([]float64, error) {
	if seq.Qubits < 1 || seq.Qubits > s.maxQubits {
		return nil, fmt.Errorf("%w: %d qubits, limit %d", ErrTooManyQubits, seq.Qubits, s.maxQubits)
	}

	state := newStateVector(seq.Qubits)
	for i, g := range seq.Gates {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := state.apply(g); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return state.probabilities(), nil
}

// streamID picks the PCG stream for a sampled execution from the sequence
// and shot count, so a seed reproduces the same histogram regardless of the
// order executions run in.
func streamID(seq domain.GateSequence, shots int) (uint64, error) {
	encoded, err := msgpack.Marshal(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to encode gate sequence: %w", err)
	}
	h := fnv.New64a()
	_, _ = h.Write(encoded)
	_ = binary.Write(h, binary.LittleEndian, uint64(shots))
	return h.Sum64(), nil
}

func exactCounts(probs []float64, qubits, shots int) domain.Histogram {
	hist := make(domain.Histogram)
	for idx, p := range probs {
		if count := int(math.Round(p * float64(shots))); count > 0 {
			hist[outcomeKey(idx, qubits)] = count
		}
	}
	return hist
}

func sampledCounts(probs []float64, qubits, shots int, src rand.Source) domain.Histogram {
	dist := distuv.NewCategorical(probs, src)
	hist := make(domain.Histogram)
	for i := 0; i < shots; i++ {
		hist[outcomeKey(int(dist.Rand()), qubits)]++
	}
	return hist
}

// outcomeKey renders a basis index as a Q-bit string, qubit Q-1 leftmost
func outcomeKey(idx, qubits int) string {
	s := strconv.FormatUint(uint64(idx), 2)
	if len(s) < qubits {
		s = strings.Repeat("0", qubits-len(s)) + s
	}
	return s
}
