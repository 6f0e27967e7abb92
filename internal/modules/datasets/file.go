package datasets

import (
	"context"
	"fmt"
	"os"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Dataset is the msgpack dataset file layout
type Dataset struct {
	Side    int             `msgpack:"side"`
	Samples []domain.Sample `msgpack:"samples"`
}

// Validate checks that every sample is a side x side grid
func (d *Dataset) Validate() error {
	if d.Side < 1 {
		return domain.ErrInvalidSide
	}
	for i, s := range d.Samples {
		if len(s.Image) != d.Side {
			return fmt.Errorf("%w: sample %d has %d rows, expected %d", domain.ErrDimensionMismatch, i, len(s.Image), d.Side)
		}
		for r, row := range s.Image {
			if len(row) != d.Side {
				return fmt.Errorf("%w: sample %d row %d has %d columns", domain.ErrDimensionMismatch, i, r, len(row))
			}
		}
	}
	return nil
}

// UnmarshalDataset decodes and validates a msgpack dataset. Samples without
// an ID are named by their position.
func UnmarshalDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := msgpack.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	for i := range ds.Samples {
		if ds.Samples[i].ID == "" {
			ds.Samples[i].ID = fmt.Sprintf("%d", i)
		}
	}
	return &ds, nil
}

// WriteFile stores ds at path in msgpack form
func WriteFile(path string, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	data, err := msgpack.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dataset %s: %w", path, err)
	}
	return nil
}

// FileSource loads a msgpack dataset file
type FileSource struct {
	path string
	side int
	log  zerolog.Logger
}

// NewFileSource creates a source over the dataset file at path. side must
// match the side recorded in the file.
func NewFileSource(path string, side int, log zerolog.Logger) *FileSource {
	return &FileSource{
		path: path,
		side: side,
		log:  log.With().Str("source", "file").Logger(),
	}
}

// Name identifies the source
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Load reads, validates and normalizes the dataset
func (s *FileSource) Load(ctx context.Context) ([]domain.Sample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	ds, err := UnmarshalDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", s.path, err)
	}
	if ds.Side != s.side {
		return nil, fmt.Errorf("%w: dataset %s has side %d, configured side is %d",
			domain.ErrDimensionMismatch, s.path, ds.Side, s.side)
	}

	Normalize(ds.Samples)

	s.log.Info().
		Str("path", s.path).
		Int("samples", len(ds.Samples)).
		Msg("Loaded dataset")

	return ds.Samples, nil
}

// NoSource stands in when no dataset location is configured
type NoSource struct{}

// Name identifies the source
func (NoSource) Name() string {
	return "none"
}

// Load always fails with domain.ErrNoDataset
func (NoSource) Load(ctx context.Context) ([]domain.Sample, error) {
	return nil, domain.ErrNoDataset
}
