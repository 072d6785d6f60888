package handler

import (
	"net/http"
	"time"

	"airfeeld/internal/middleware"
	"airfeeld/internal/service"
	"airfeeld/pkg/logger"
)

// ChallengeHandler issues proof-of-work challenges.
type ChallengeHandler struct {
	pow *service.PoWService
	log *logger.Logger
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(pow *service.PoWService, log *logger.Logger) *ChallengeHandler {
	return &ChallengeHandler{pow: pow, log: log}
}

type createChallengeRequest struct {
	AccessibilityMode bool `json:"accessibility_mode"`
}

type challengeResponse struct {
	ID               string    `json:"id"`
	ChallengeNonce   string    `json:"challenge_nonce"`
	Difficulty       int       `json:"difficulty"`
	ExpiresInSeconds int       `json:"expires_in_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Create handles POST /api/v1/challenges
func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err, h.log)
			return
		}
	}

	challenge, err := h.pow.IssueChallenge(r.Context(), middleware.ClientIP(r), req.AccessibilityMode)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, challengeResponse{
		ID:               challenge.ID.String(),
		ChallengeNonce:   challenge.ChallengeNonce,
		Difficulty:       challenge.Difficulty,
		ExpiresInSeconds: challenge.ExpiresIn(time.Now().UTC()),
		ExpiresAt:        challenge.ExpiresAt,
	}, h.log)
}
