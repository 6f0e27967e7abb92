package datasets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
)

// DirSource loads every image file of a directory, sorted by file name
type DirSource struct {
	dir  string
	side int
	log  zerolog.Logger
}

// NewDirSource creates a source over dir producing side x side samples
func NewDirSource(dir string, side int, log zerolog.Logger) *DirSource {
	return &DirSource{
		dir:  dir,
		side: side,
		log:  log.With().Str("source", "dir").Logger(),
	}
}

// Name identifies the source
func (s *DirSource) Name() string {
	return "dir:" + s.dir
}

// Load decodes, resizes and normalizes every image in the directory
func (s *DirSource) Load(ctx context.Context) ([]domain.Sample, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	samples := make([]domain.Sample, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := OpenImage(filepath.Join(s.dir, name), s.side)
		if err != nil {
			return nil, err
		}
		samples = append(samples, domain.Sample{
			ID:    strings.TrimSuffix(name, filepath.Ext(name)),
			Image: img,
		})
	}

	Normalize(samples)

	s.log.Info().
		Str("dir", s.dir).
		Int("samples", len(samples)).
		Int("side", s.side).
		Msg("Loaded dataset")

	return samples, nil
}
