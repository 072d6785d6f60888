package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"airfeeld/pkg/errors"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// Player is a game account. The only identity kept is the self-chosen
// username; registration IP survives solely as a SHA-256 digest.
type Player struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Username             string    `json:"username" db:"username"`
	RegistrationIPDigest string    `json:"-" db:"registration_ip_digest"`
	TotalScore           int       `json:"total_score" db:"total_score"`
	RoundsPlayed         int       `json:"rounds_played" db:"rounds_played"`
	PhotosUploaded       int       `json:"photos_uploaded" db:"photos_uploaded"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// NewPlayer creates an account with zeroed stats.
func NewPlayer(username, registrationIPDigest string) *Player {
	return &Player{
		ID:                   uuid.New(),
		Username:             username,
		RegistrationIPDigest: registrationIPDigest,
		CreatedAt:            time.Now().UTC(),
	}
}

// ValidateUsername enforces the username shape: 3 to 20 characters, letters,
// digits and underscore only.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return errors.NewValidationError("username must be 3-20 characters of letters, digits or underscore", map[string]interface{}{"field": "username"})
	}
	return nil
}
