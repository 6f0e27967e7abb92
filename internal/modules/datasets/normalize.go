// Package datasets loads grading datasets from image directories, msgpack
// dataset files and S3-compatible object storage.
package datasets

import (
	"github.com/aristath/qpixel/internal/domain"
)

// Normalize rescales every sample in place so the dataset's brightest pixel
// becomes 255. An all-black dataset is left untouched.
func Normalize(samples []domain.Sample) {
	peak := 0.0
	for _, s := range samples {
		for _, row := range s.Image {
			for _, v := range row {
				peak = max(peak, v)
			}
		}
	}
	if peak == 0 {
		return
	}

	for _, s := range samples {
		for _, row := range s.Image {
			for c, v := range row {
				row[c] = min(v/peak*domain.MaxIntensity, domain.MaxIntensity)
			}
		}
	}
}
