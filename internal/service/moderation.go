package service

import (
	"encoding/hex"
	"fmt"
	"image"
	"math/bits"

	"golang.org/x/image/draw"

	"airfeeld/pkg/phash"
)

const (
	maxPhotoBytes = 10 << 20

	// Above this fraction of skin-tone pixels the photo goes to review.
	skinToneThreshold = 0.30

	// Below this hash-bit density the image is likely a solid color or spam.
	minComplexity = 0.1
)

// skinToneRanges are inclusive RGB boxes approximating human skin tones.
// Deliberately rough; the goal is flagging for review, not classification.
var skinToneRanges = [][2][3]uint8{
	{{95, 40, 20}, {255, 180, 130}},
	{{60, 30, 15}, {255, 150, 100}},
	{{20, 10, 5}, {100, 60, 40}},
}

// ModerationResult is the verdict of the local content checks.
type ModerationResult struct {
	IsSafe     bool     `json:"is_safe"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// ModerationService screens uploads with local-only heuristics: size and
// dimension limits, a skin-tone pixel ratio as an NSFW approximation, and a
// complexity floor against solid-color spam. No image bytes leave the
// process.
type ModerationService struct {
	minWidth  int
	minHeight int
}

// NewModerationService creates a new moderation service instance
func NewModerationService(minWidth, minHeight int) *ModerationService {
	return &ModerationService{minWidth: minWidth, minHeight: minHeight}
}

// CheckImage runs every heuristic and returns the combined verdict.
func (m *ModerationService) CheckImage(img image.Image, sizeBytes int) ModerationResult {
	if sizeBytes > maxPhotoBytes {
		return ModerationResult{
			IsSafe:     false,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("file too large: %.1fMB (max 10MB)", float64(sizeBytes)/(1<<20)),
		}
	}

	bounds := img.Bounds()
	if bounds.Dx() < m.minWidth || bounds.Dy() < m.minHeight {
		return ModerationResult{
			IsSafe:     false,
			Confidence: 1.0,
			Reason: fmt.Sprintf("image too small: %dx%d (min %dx%d)",
				bounds.Dx(), bounds.Dy(), m.minWidth, m.minHeight),
		}
	}

	var flags []string

	skinRatio := skinToneRatio(img)
	if skinRatio > skinToneThreshold {
		flags = append(flags, "high_skin_tone")
	}

	if complexity(img) < minComplexity {
		flags = append(flags, "low_complexity")
	}

	for _, f := range flags {
		if f == "high_skin_tone" {
			return ModerationResult{
				IsSafe:     false,
				Confidence: 0.7,
				Reason:     "high skin tone ratio, possible explicit content",
				Flags:      flags,
			}
		}
	}

	if len(flags) == 1 && flags[0] == "low_complexity" {
		return ModerationResult{
			IsSafe:     false,
			Confidence: 0.8,
			Reason:     "low image complexity, possible spam or invalid photo",
			Flags:      flags,
		}
	}

	return ModerationResult{IsSafe: true, Confidence: 0.9, Flags: flags}
}

// skinToneRatio samples the image at 100x100 and returns the fraction of
// pixels falling inside any skin-tone range.
func skinToneRatio(img image.Image) float64 {
	const sample = 100

	scaled := image.NewRGBA(image.Rect(0, 0, sample, sample))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	matched := 0
	for y := 0; y < sample; y++ {
		for x := 0; x < sample; x++ {
			offset := scaled.PixOffset(x, y)
			r := scaled.Pix[offset]
			g := scaled.Pix[offset+1]
			b := scaled.Pix[offset+2]

			for _, tone := range skinToneRanges {
				lo, hi := tone[0], tone[1]
				if r >= lo[0] && r <= hi[0] && g >= lo[1] && g <= hi[1] && b >= lo[2] && b <= hi[2] {
					matched++
					break
				}
			}
		}
	}

	return float64(matched) / float64(sample*sample)
}

// complexity measures the density of set bits in the perceptual hash. A
// solid color hashes to all zeros; a detailed photo sits near one half.
func complexity(img image.Image) float64 {
	raw, err := hex.DecodeString(phash.AverageHash(img))
	if err != nil {
		return 1
	}

	set := 0
	for _, b := range raw {
		set += bits.OnesCount8(b)
	}

	return float64(set) / 256.0
}
