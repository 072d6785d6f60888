package handler

import (
	"net/http"

	"github.com/google/uuid"

	"airfeeld/internal/middleware"
	"airfeeld/internal/service"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// PlayerHandler exposes account registration, lookup, export and deletion.
type PlayerHandler struct {
	players *service.PlayerService
	game    *service.GameService
	log     *logger.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players *service.PlayerService, game *service.GameService, log *logger.Logger) *PlayerHandler {
	return &PlayerHandler{players: players, game: game, log: log}
}

type registerRequest struct {
	Username      string `json:"username"`
	ChallengeID   string `json:"challenge_id"`
	SolutionNonce string `json:"solution_nonce"`
}

// Register handles POST /api/v1/players
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid challenge_id",
			map[string]interface{}{"field": "challenge_id"}), h.log)
		return
	}

	player, err := h.players.Register(r.Context(), req.Username, middleware.ClientIP(r), challengeID, req.SolutionNonce)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, player, h.log)
}

// Get handles GET /api/v1/players/{playerID}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	player, err := h.players.Get(r.Context(), playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, player, h.log)
}

// Export handles GET /api/v1/players/{playerID}/export
func (h *PlayerHandler) Export(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	export, err := h.players.Export(r.Context(), playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="airfeeld-export.json"`)
	respondJSON(w, http.StatusOK, export, h.log)
}

// Delete handles DELETE /api/v1/players/{playerID}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if err := h.players.Delete(r.Context(), playerID); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Rounds handles GET /api/v1/players/{playerID}/rounds
func (h *PlayerHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	limit := queryInt(r, "limit", 10)
	rounds, err := h.game.GetPlayerRounds(r.Context(), playerID, limit)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds}, h.log)
}
