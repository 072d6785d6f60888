package domain

import (
	"time"

	"github.com/google/uuid"
)

// PhotoStatus is the moderation lifecycle state of an uploaded photo.
type PhotoStatus string

const (
	PhotoPending  PhotoStatus = "pending"  // awaiting moderation
	PhotoApproved PhotoStatus = "approved" // eligible for rounds
	PhotoRejected PhotoStatus = "rejected" // failed moderation
	PhotoArchived PhotoStatus = "archived" // pulled from rotation
)

// Photo is an aircraft photo with its ground-truth answers. UploaderDigest is
// the SHA-256 of the uploader's player ID; no raw identity is stored on the
// photo row itself.
type Photo struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	UploaderDigest string      `json:"-" db:"uploader_digest"`
	StorageKey     string      `json:"-" db:"storage_key"`
	FileDigest     string      `json:"-" db:"file_digest"`
	PerceptualHash string      `json:"-" db:"perceptual_hash"`
	AircraftType   string      `json:"-" db:"aircraft_type"`
	Registration   *string     `json:"-" db:"registration"`
	Airline        *string     `json:"-" db:"airline"`
	AirportCode    string      `json:"-" db:"airport_code"`
	Latitude       float64     `json:"-" db:"latitude"`
	Longitude      float64     `json:"-" db:"longitude"`
	Width          int         `json:"width" db:"width"`
	Height         int         `json:"height" db:"height"`
	Status         PhotoStatus `json:"status" db:"status"`
	FlagCount      int         `json:"-" db:"flag_count"`
	TimesUsed      int         `json:"-" db:"times_used"`
	ScoreSum       int         `json:"-" db:"score_sum"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// PhotoFingerprint is the dedup projection of a stored photo: the exact file
// digest and the perceptual hash, nothing else.
type PhotoFingerprint struct {
	PhotoID        uuid.UUID `db:"id"`
	FileDigest     string    `db:"file_digest"`
	PerceptualHash string    `db:"perceptual_hash"`
}

// IsPlayable reports whether the photo may be served in a new round.
func (p *Photo) IsPlayable() bool {
	return p.Status == PhotoApproved
}
