package datasets

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
)

// ObjectStore is the part of objectstore.Client the S3 source needs
type ObjectStore interface {
	Bucket() string
	List(ctx context.Context, prefix string) ([]string, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// S3Source loads a dataset stored under a bucket prefix. Image objects
// become one sample each; .msgpack objects contribute all their samples.
type S3Source struct {
	store  ObjectStore
	prefix string
	side   int
	log    zerolog.Logger
}

// NewS3Source creates a source over every object under prefix
func NewS3Source(store ObjectStore, prefix string, side int, log zerolog.Logger) *S3Source {
	return &S3Source{
		store:  store,
		prefix: prefix,
		side:   side,
		log:    log.With().Str("source", "s3").Logger(),
	}
}

// Name identifies the source
func (s *S3Source) Name() string {
	return "s3://" + s.store.Bucket() + "/" + s.prefix
}

// Load downloads, decodes and normalizes every supported object, in key order
func (s *S3Source) Load(ctx context.Context) ([]domain.Sample, error) {
	keys, err := s.store.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var samples []domain.Sample
	skipped := 0
	for _, key := range keys {
		isDataset := strings.EqualFold(path.Ext(key), ".msgpack")
		if !isDataset && !IsImageFile(key) {
			skipped++
			continue
		}

		data, err := s.store.Download(ctx, key)
		if err != nil {
			return nil, err
		}

		if isDataset {
			ds, err := UnmarshalDataset(data)
			if err != nil {
				return nil, fmt.Errorf("object %s: %w", key, err)
			}
			if ds.Side != s.side {
				return nil, fmt.Errorf("%w: object %s has side %d, configured side is %d",
					domain.ErrDimensionMismatch, key, ds.Side, s.side)
			}
			for _, sample := range ds.Samples {
				sample.ID = key + "#" + sample.ID
				samples = append(samples, sample)
			}
			continue
		}

		img, err := DecodeImage(bytes.NewReader(data), s.side)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", key, err)
		}
		samples = append(samples, domain.Sample{ID: key, Image: img})
	}

	Normalize(samples)

	s.log.Info().
		Str("prefix", s.prefix).
		Int("samples", len(samples)).
		Int("skipped", skipped).
		Msg("Loaded dataset")

	return samples, nil
}
