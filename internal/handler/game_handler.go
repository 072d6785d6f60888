package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"airfeeld/internal/domain"
	"airfeeld/internal/service"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// GameHandler drives rounds over HTTP. Every round endpoint requires the
// owning player's ID; foreign rounds are indistinguishable from missing ones.
type GameHandler struct {
	game *service.GameService
	log  *logger.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(game *service.GameService, log *logger.Logger) *GameHandler {
	return &GameHandler{game: game, log: log}
}

type startRoundRequest struct {
	PlayerID string `json:"player_id"`
}

// photoView is the photo as players may see it mid-round. Ground-truth
// fields stay server-side until the round ends.
type photoView struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type roundResponse struct {
	Round         *domain.Round `json:"round"`
	Photo         *photoView    `json:"photo,omitempty"`
	TimeRemaining int           `json:"time_remaining_seconds"`
}

// Start handles POST /api/v1/rounds
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRoundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	round, photo, err := h.game.StartRound(r.Context(), playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, roundResponse{
		Round:         round,
		Photo:         &photoView{ID: photo.ID.String(), Width: photo.Width, Height: photo.Height},
		TimeRemaining: round.TimeRemaining(time.Now().UTC()),
	}, h.log)
}

type guessRequest struct {
	PlayerID     string   `json:"player_id"`
	AircraftType *string  `json:"aircraft_type,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

type guessResponse struct {
	Guess *domain.Guess `json:"guess"`
	Round *domain.Round `json:"round"`
}

// Guess handles POST /api/v1/rounds/{roundID}/guesses
func (h *GameHandler) Guess(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	var req guessRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		respondError(w, r, errors.NewValidationError("latitude and longitude must be given together",
			map[string]interface{}{"field": "location"}), h.log)
		return
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180) {
		respondError(w, r, errors.NewValidationError("coordinates out of range",
			map[string]interface{}{"field": "location"}), h.log)
		return
	}

	guess, round, err := h.game.SubmitGuess(r.Context(), roundID, playerID, req.AircraftType, req.Latitude, req.Longitude)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, guessResponse{Guess: guess, Round: round}, h.log)
}

type roundActionRequest struct {
	PlayerID string `json:"player_id"`
}

// Complete handles POST /api/v1/rounds/{roundID}/complete
func (h *GameHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.game.CompleteRound)
}

// Abandon handles POST /api/v1/rounds/{roundID}/abandon
func (h *GameHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.game.AbandonRound)
}

func (h *GameHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, roundID, playerID uuid.UUID) (*domain.Round, error)) {
	roundID, err := uuidParam(r, "roundID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	var req roundActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	round, err := fn(r.Context(), roundID, playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, roundResponse{Round: round}, h.log)
}

// Get handles GET /api/v1/rounds/{roundID}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuidParam(r, "roundID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	playerID, err := uuid.Parse(r.URL.Query().Get("player_id"))
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	round, guesses, err := h.game.GetRound(r.Context(), roundID, playerID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"round":                  round,
		"guesses":                guesses,
		"time_remaining_seconds": round.TimeRemaining(time.Now().UTC()),
	}, h.log)
}
