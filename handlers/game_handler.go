package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gs services.GameService) *GameHandler {
	return &GameHandler{gameService: gs}
}

// CreateGameHandler обрабатывает POST /games (только admin)
func (h *GameHandler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var input services.CreateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetGameByIDHandler обрабатывает GET /games/{gameID}
func (h *GameHandler) GetGameByIDHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGameByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetAllGamesHandler обрабатывает GET /games
func (h *GameHandler) GetAllGamesHandler(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.GetAllGames(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
