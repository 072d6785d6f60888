package handler

import (
	"net/http"

	"airfeeld/internal/service"
	"airfeeld/pkg/logger"
)

// LeaderboardHandler serves the global ranking.
type LeaderboardHandler struct {
	board *service.LeaderboardService
	log   *logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(board *service.LeaderboardService, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, log: log}
}

// Top handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.board.Top(r.Context(), queryInt(r, "limit", 25))
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=10")
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries}, h.log)
}

// PlayerRank handles GET /api/v1/leaderboard/players/{playerID}
func (h *LeaderboardHandler) PlayerRank(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidParam(r, "playerID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	entry, err := h.board.PlayerRank(r.Context(), playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if entry == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"ranked": false}, h.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"ranked": true, "entry": entry}, h.log)
}
