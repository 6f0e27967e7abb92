package datasets

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/aristath/qpixel/internal/domain"
	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// imageExtensions are the file types DirSource and S3Source decode
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImageFile reports whether name has a decodable image extension
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// DecodeImage reads an encoded image and converts it to a side x side
// grayscale intensity grid
func DecodeImage(r io.Reader, side int) (domain.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img, side)
}

// OpenImage decodes the image file at path, see DecodeImage
func OpenImage(path string, side int) (domain.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return FromImage(img, side)
}

// FromImage converts img to grayscale and resizes it to side x side.
// Intensities are the 8-bit luminance, not yet normalized.
func FromImage(img image.Image, side int) (domain.Image, error) {
	if side < 1 {
		return nil, domain.ErrInvalidSide
	}

	bounds := img.Bounds()
	if bounds.Dx() != side || bounds.Dy() != side {
		img = resize.Resize(uint(side), uint(side), img, resize.Bilinear)
	}

	g := gift.New(gift.Grayscale())
	gray := image.NewGray(g.Bounds(img.Bounds()))
	g.Draw(gray, img)

	out := domain.NewImage(side)
	b := gray.Bounds()
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			out[y][x] = float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return out, nil
}

// ToGray renders an intensity grid as an 8-bit grayscale image
func ToGray(img domain.Image) *image.Gray {
	side := img.Side()
	out := image.NewGray(image.Rect(0, 0, side, side))
	for y, row := range img {
		for x, v := range row {
			v = max(0, min(v, domain.MaxIntensity))
			out.SetGray(x, y, color.Gray{Y: uint8(v + 0.5)})
		}
	}
	return out
}
