package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Challenge is a single-use proof-of-work puzzle gating account creation.
// The client must find a nonce such that SHA256(ChallengeNonce + nonce)
// starts with Difficulty zero hex characters. Only the SHA-256 digest of the
// requesting IP is ever kept.
type Challenge struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ChallengeNonce string     `json:"challenge_nonce" db:"challenge_nonce"`
	Difficulty     int        `json:"difficulty" db:"difficulty"`
	ClientIPDigest string     `json:"-" db:"client_ip_digest"`
	SolvedNonce    *string    `json:"-" db:"solved_nonce"`
	SolvedAt       *time.Time `json:"-" db:"solved_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
}

// NewChallenge creates a fresh unsolved challenge for the given IP digest.
func NewChallenge(clientIPDigest string, difficulty int, ttl time.Duration) *Challenge {
	now := time.Now().UTC()
	return &Challenge{
		ID:             uuid.New(),
		ChallengeNonce: randomNonce(),
		Difficulty:     difficulty,
		ClientIPDigest: clientIPDigest,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// IsExpired reports whether the challenge validity period has passed.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsSolved reports whether the challenge has already been consumed. A solved
// challenge is immutable and never verifies again.
func (c *Challenge) IsSolved() bool {
	return c.SolvedNonce != nil
}

// ExpiresIn returns the remaining validity in whole seconds, clamped at 0.
func (c *Challenge) ExpiresIn(now time.Time) int {
	remaining := int(c.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckSolution reports whether solutionNonce satisfies the hash-prefix rule.
// Pure; the single-use marking happens in storage via compare-and-swap.
func (c *Challenge) CheckSolution(solutionNonce string) bool {
	return SolvesChallenge(c.ChallengeNonce, solutionNonce, c.Difficulty)
}

// SolvesChallenge verifies the proof-of-work rule directly: the hex digest of
// SHA256(challengeNonce + solutionNonce) must start with difficulty literal
// '0' characters. Reproducible bit-for-bit by any client.
func SolvesChallenge(challengeNonce, solutionNonce string, difficulty int) bool {
	sum := sha256.Sum256([]byte(challengeNonce + solutionNonce))
	digest := hex.EncodeToString(sum[:])
	return strings.HasPrefix(digest, strings.Repeat("0", difficulty))
}

// randomNonce returns 16 random bytes as 32 hex characters.
func randomNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
