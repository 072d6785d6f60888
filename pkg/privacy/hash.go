// Package privacy provides the one-way digests used everywhere raw
// identifiers must not be persisted. Only these digests ever reach storage,
// rate limiting, or the audit trail.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIP returns the SHA-256 hex digest of an IP address. Raw IPs must never
// be stored; every abuse-control decision is keyed by this digest instead.
func HashIP(ipAddress string) string {
	if ipAddress == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ipAddress))
	return hex.EncodeToString(sum[:])
}

// HashID returns the SHA-256 hex digest of an entity identifier, for
// correlation in audit logs without exposing the identifier itself.
func HashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
