package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/services"
)

type RankingHandler struct {
	ratingService services.RatingService
}

func NewRankingHandler(rs services.RatingService) *RankingHandler {
	return &RankingHandler{ratingService: rs}
}

// LeaderboardHandler обрабатывает GET /games/{gameID}/leaderboard?limit=&offset=
func (h *RankingHandler) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rankings, err := h.ratingService.Leaderboard(r.Context(), gameID, intOrDefault(limit, 50), intOrDefault(offset, 0))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UserRankingsHandler обрабатывает GET /users/{userID}/rankings
func (h *RankingHandler) UserRankingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rankings, err := h.ratingService.PlayerRankings(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": rankings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// HistoryHandler обрабатывает GET /users/{userID}/rating-history?game_id=&limit=
func (h *RankingHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	gameID, err := queryInt(r, "game_id", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.ratingService.History(r.Context(), userID, gameID, intOrDefault(limit, 50))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ComputeDeltaHandler обрабатывает POST /rating/delta. Ничего не сохраняет.
func (h *RankingHandler) ComputeDeltaHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		WinnerRating float64  `json:"winner_rating"`
		LoserRating  float64  `json:"loser_rating"`
		KFactor      *float64 `json:"k_factor"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.ratingService.ComputeDelta(input.WinnerRating, input.LoserRating, input.KFactor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"outcome": outcome}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
