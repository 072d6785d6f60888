package service

import (
	"strings"

	"airfeeld/pkg/geo"
)

const (
	maxSubScore = 1000

	// Aircraft tier weights
	substringWeight = 0.8
	fuzzyWeight     = 0.6

	// Location decay shape
	perfectRadiusKM = 50
	zeroRadiusKM    = 5000
)

// ScoringEngine turns guesses into sub-scores. Pure and stateless; every
// method is deterministic in its arguments.
type ScoringEngine struct{}

// NewScoringEngine creates a new scoring engine instance
func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// ScoreAircraft scores a free-text aircraft guess against the ground truth on
// a 0..1000 scale. Tiers, best first: exact match after normalization,
// substring containment scaled by length ratio, then fuzzy edit-distance
// similarity with anything below 0.5 scoring zero.
func (s *ScoringEngine) ScoreAircraft(guess, truth string) int {
	g := normalizeAircraft(guess)
	t := normalizeAircraft(truth)

	if g == "" || t == "" {
		return 0
	}

	if g == t {
		return maxSubScore
	}

	if strings.Contains(g, t) || strings.Contains(t, g) {
		shorter, longer := len(g), len(t)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return int(float64(maxSubScore) * (float64(shorter) / float64(longer)) * substringWeight)
	}

	dist := levenshtein(g, t)
	maxLen := len(g)
	if len(t) > maxLen {
		maxLen = len(t)
	}
	similarity := 1.0 - float64(dist)/float64(maxLen)
	if similarity < 0.5 {
		return 0
	}

	return int(float64(maxSubScore) * (similarity - 0.5) * 2 * fuzzyWeight)
}

// ScoreLocation scores a coordinate guess against the true position and
// returns the great-circle distance alongside the score.
func (s *ScoringEngine) ScoreLocation(guessLat, guessLon, truthLat, truthLon float64) (int, float64) {
	distanceKM := geo.HaversineKM(guessLat, guessLon, truthLat, truthLon)
	return s.ScoreDistance(distanceKM), distanceKM
}

// ScoreDistance maps a great-circle distance to 0..1000: full marks inside
// 50 km, nothing from 5000 km out, linear in between.
func (s *ScoringEngine) ScoreDistance(distanceKM float64) int {
	if distanceKM <= perfectRadiusKM {
		return maxSubScore
	}
	if distanceKM >= zeroRadiusKM {
		return 0
	}

	fraction := 1.0 - (distanceKM-perfectRadiusKM)/(zeroRadiusKM-perfectRadiusKM)
	return int(float64(maxSubScore) * fraction)
}

// normalizeAircraft lowercases, trims and collapses runs of whitespace so
// "Boeing  737 " and "boeing 737" compare equal.
func normalizeAircraft(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// levenshtein computes the edit distance between two strings with the
// classic two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
