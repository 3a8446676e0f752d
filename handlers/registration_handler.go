package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// RegisterHandler обрабатывает POST /tournaments/{tournamentID}/registrations.
// Для командных турниров тело {"team_id": N}, для одиночных тело можно не передавать.
func (h *RegistrationHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID *int `json:"team_id"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	registration, err := h.registrationService.Register(r.Context(), actor, tournamentID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/registrations?status=
func (h *RegistrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var status *models.RegistrationStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		s := models.RegistrationStatus(statusStr)
		if !s.Valid() {
			badRequestResponse(w, r, errors.New("invalid status query parameter"))
			return
		}
		status = &s
	}

	registrations, err := h.registrationService.ListByTournament(r.Context(), tournamentID, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatusHandler обрабатывает PATCH /registrations/{registrationID}/status
func (h *RegistrationHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status models.RegistrationStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.UpdateStatus(r.Context(), actor, registrationID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelHandler обрабатывает DELETE /registrations/{registrationID}
func (h *RegistrationHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.Cancel(r.Context(), actor, registrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetSeedHandler обрабатывает PUT /registrations/{registrationID}/seed; {"seed": null} снимает посев.
func (h *RegistrationHandler) SetSeedHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Seed *int `json:"seed"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	registration, err := h.registrationService.SetSeed(r.Context(), actor, registrationID, input.Seed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
