package datasets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func encodePNG(t *testing.T, pixels [][]uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, len(pixels[0]), len(pixels)))
	for y, row := range pixels {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func assertImageInDelta(t *testing.T, expected, actual domain.Image, delta float64) {
	t.Helper()
	require.Equal(t, expected.Side(), actual.Side())
	for r := range expected {
		for c := range expected[r] {
			assert.InDelta(t, expected[r][c], actual[r][c], delta, "pixel (%d,%d)", r, c)
		}
	}
}

func TestNormalize(t *testing.T) {
	samples := []domain.Sample{
		{Image: domain.Image{{0, 50}, {100, 25}}},
		{Image: domain.Image{{10, 10}, {10, 10}}},
	}
	Normalize(samples)

	assertImageInDelta(t, domain.Image{{0, 127.5}, {255, 63.75}}, samples[0].Image, 1e-9)
	assertImageInDelta(t, domain.Image{{25.5, 25.5}, {25.5, 25.5}}, samples[1].Image, 1e-9)
	assert.Equal(t, 255.0, samples[0].Image[1][0])

	black := []domain.Sample{{Image: domain.NewImage(2)}}
	Normalize(black)
	assert.Equal(t, domain.NewImage(2), black[0].Image)
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(bytes.NewReader(encodePNG(t, [][]uint8{{0, 200}, {50, 255}})), 2)
	require.NoError(t, err)
	assertImageInDelta(t, domain.Image{{0, 200}, {50, 255}}, img, 1)

	// a uniform image stays uniform when resized
	big := [][]uint8{{80, 80, 80, 80}, {80, 80, 80, 80}, {80, 80, 80, 80}, {80, 80, 80, 80}}
	img, err = DecodeImage(bytes.NewReader(encodePNG(t, big)), 2)
	require.NoError(t, err)
	assertImageInDelta(t, domain.Image{{80, 80}, {80, 80}}, img, 1)

	_, err = DecodeImage(bytes.NewReader([]byte("not an image")), 2)
	assert.Error(t, err)

	_, err = FromImage(image.NewGray(image.Rect(0, 0, 1, 1)), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestToGray(t *testing.T) {
	gray := ToGray(domain.Image{{0, 127.6}, {300, 255}})
	assert.Equal(t, uint8(0), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), gray.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), gray.GrayAt(0, 1).Y)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), encodePNG(t, [][]uint8{{10, 10}, {10, 10}}), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), encodePNG(t, [][]uint8{{0, 50}, {100, 25}}), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	source := NewDirSource(dir, 2, zerolog.Nop())
	assert.Equal(t, "dir:"+dir, source.Name())

	samples, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "a", samples[0].ID)
	assert.Equal(t, "b", samples[1].ID)
	assertImageInDelta(t, domain.Image{{0, 127.5}, {255, 63.75}}, samples[0].Image, 3)

	_, err = NewDirSource(filepath.Join(dir, "missing"), 2, zerolog.Nop()).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.msgpack")
	require.NoError(t, WriteFile(path, &Dataset{
		Side: 2,
		Samples: []domain.Sample{
			{ID: "zero", Label: "0", Image: domain.Image{{0, 2}, {4, 8}}},
			{Image: domain.Image{{1, 1}, {1, 1}}},
		},
	}))

	samples, err := NewFileSource(path, 2, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "zero", samples[0].ID)
	assert.Equal(t, "0", samples[0].Label)
	assert.Equal(t, "1", samples[1].ID)
	assert.Equal(t, domain.Image{{0, 63.75}, {127.5, 255}}, samples[0].Image)

	_, err = NewFileSource(path, 4, zerolog.Nop()).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestUnmarshalDataset_Rejects(t *testing.T) {
	ragged, err := msgpack.Marshal(&Dataset{Side: 2, Samples: []domain.Sample{{Image: domain.Image{{1, 2}, {3}}}}})
	require.NoError(t, err)
	_, err = UnmarshalDataset(ragged)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	noSide, err := msgpack.Marshal(&Dataset{})
	require.NoError(t, err)
	_, err = UnmarshalDataset(noSide)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)

	_, err = UnmarshalDataset([]byte{0xc1})
	assert.Error(t, err)

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "x"), &Dataset{Side: 0}))
}

type fakeStore struct {
	objects map[string][]byte
	keys    []string
	listErr error
}

func (f *fakeStore) Bucket() string { return "datasets" }

func (f *fakeStore) List(ctx context.Context, prefix string) ([]string, error) {
	return f.keys, f.listErr
}

func (f *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestS3Source(t *testing.T) {
	pack, err := msgpack.Marshal(&Dataset{
		Side:    2,
		Samples: []domain.Sample{{ID: "p", Image: domain.Image{{0, 0}, {0, 50}}}},
	})
	require.NoError(t, err)

	store := &fakeStore{
		keys: []string{"digits/a.png", "digits/readme.md", "digits/more.msgpack"},
		objects: map[string][]byte{
			"digits/a.png":        encodePNG(t, [][]uint8{{100, 0}, {0, 0}}),
			"digits/more.msgpack": pack,
		},
	}

	source := NewS3Source(store, "digits/", 2, zerolog.Nop())
	assert.Equal(t, "s3://datasets/digits/", source.Name())

	samples, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "digits/a.png", samples[0].ID)
	assert.Equal(t, "digits/more.msgpack#p", samples[1].ID)
	assert.InDelta(t, 255, samples[0].Image[0][0], 3)
	assert.InDelta(t, 127.5, samples[1].Image[1][1], 3)

	store.listErr = errors.New("access denied")
	_, err = source.Load(context.Background())
	assert.ErrorContains(t, err, "access denied")
}
