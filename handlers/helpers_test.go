package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/esports-platform/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", services.ErrMatchNotFound), http.StatusNotFound},
		{services.ErrNotOwner, http.StatusForbidden},
		{services.ErrNotCaptain, http.StatusForbidden},
		{services.ErrRegistrationClosed, http.StatusConflict},
		{services.ErrMatchLocked, http.StatusConflict},
		{services.ErrRatingConflict, http.StatusConflict},
		{services.ErrTournamentFull, http.StatusConflict},
		{services.ErrRegistrationConflict, http.StatusConflict},
		{services.ErrAlreadyGenerated, http.StatusConflict},
		{services.ErrInsufficientParticipants, http.StatusUnprocessableEntity},
		{services.ErrInvalidWinner, http.StatusBadRequest},
		{services.ErrInvalidScore, http.StatusBadRequest},
		{services.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"winner_id": 3}`, ""},
		{"empty", ``, "body must not be empty"},
		{"malformed", `{"winner_id": `, "badly-formed JSON"},
		{"wrong type", `{"winner_id": "three"}`, `incorrect JSON type for field "winner_id"`},
		{"unknown field", `{"winner": 3}`, `unknown key "winner"`},
		{"two values", `{"winner_id": 3}{"winner_id": 4}`, "single JSON value"},
		{"too large", `{"notes": "` + strings.Repeat("a", 1_100_000) + `"}`, "must not be larger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst struct {
				WinnerID int    `json:"winner_id"`
				Notes    string `json:"notes"`
			}
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 3, dst.WinnerID)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
