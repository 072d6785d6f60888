// Package phash implements the 16x16 average perceptual hash used for
// near-duplicate photo screening. Visually similar images produce hashes
// with a small Hamming distance even after resizing or recompression.
package phash

import (
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"golang.org/x/image/draw"
)

// hashSize is the downsampled edge length; the hash carries
// hashSize*hashSize bits (64 hex characters).
const hashSize = 16

// AverageHash computes the average hash of an image as a hex string.
//
// The image is downscaled to 16x16 grayscale; each bit records whether the
// pixel is brighter than the mean. Robust against resizing, recompression
// and small crops.
func AverageHash(img image.Image) string {
	gray := downscaleGray(img)

	var total uint64
	for _, v := range gray {
		total += uint64(v)
	}
	mean := uint8(total / uint64(len(gray)))

	out := make([]byte, hashSize*hashSize/8)
	for i, v := range gray {
		if v > mean {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return hex.EncodeToString(out)
}

// HammingDistance returns the number of differing bits between two hex
// encoded hashes. Hashes of different widths are not comparable.
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("hash length mismatch: %d vs %d", len(a), len(b))
	}

	ab, err := hex.DecodeString(a)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", a, err)
	}
	bb, err := hex.DecodeString(b)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q: %w", b, err)
	}

	distance := 0
	for i := range ab {
		distance += bits.OnesCount8(ab[i] ^ bb[i])
	}
	return distance, nil
}

// downscaleGray resamples the image to hashSize x hashSize and returns
// row-major luminance values.
func downscaleGray(img image.Image) []uint8 {
	small := image.NewRGBA(image.Rect(0, 0, hashSize, hashSize))
	draw.CatmullRom.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	gray := make([]uint8, 0, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			gray = append(gray, color.GrayModel.Convert(small.At(x, y)).(color.Gray).Y)
		}
	}
	return gray
}
