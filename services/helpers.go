package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/storage"
)

// --- Общие хелперы ---

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// canManage reports whether actor owns the tournament or is an admin.
func canManage(actor models.Actor, t *models.Tournament) bool {
	return actor.IsAdmin() || (actor.UserID != 0 && actor.UserID == t.OrganizerID)
}

func validateTournamentFields(t *models.Tournament) error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrTournamentNameRequired
	}
	if !t.BracketType.Valid() {
		return fmt.Errorf("%w: %q", ErrTournamentInvalidBracket, t.BracketType)
	}
	if t.MaxParticipants < 2 {
		return fmt.Errorf("%w (got %d)", ErrTournamentInvalidCapacity, t.MaxParticipants)
	}
	if t.TeamSize < 1 {
		return fmt.Errorf("%w (got %d)", ErrTournamentInvalidTeamSize, t.TeamSize)
	}
	if t.StartDate.IsZero() {
		return ErrTournamentDatesRequired
	}
	if t.EndDate != nil && !t.EndDate.After(t.StartDate) {
		return fmt.Errorf("%w: start date (%s), end date (%s)", ErrTournamentInvalidDateRange, t.StartDate.Format(time.RFC3339), t.EndDate.Format(time.RFC3339))
	}
	if t.RegistrationDeadline != nil && !t.RegistrationDeadline.Before(t.StartDate) {
		return fmt.Errorf("%w: deadline (%s), start date (%s)", ErrTournamentInvalidDeadline, t.RegistrationDeadline.Format(time.RFC3339), t.StartDate.Format(time.RFC3339))
	}
	return validatePrizes(t.PrizePool, t.PrizeDistribution)
}

func validatePrizes(pool float64, shares []models.PrizeShare) error {
	if pool < 0 {
		return fmt.Errorf("%w: prize pool cannot be negative", ErrTournamentInvalidPrize)
	}
	total := 0.0
	places := make(map[int]struct{}, len(shares))
	for _, s := range shares {
		if s.Place < 1 || s.Percent <= 0 {
			return fmt.Errorf("%w: place %d with %.2f%%", ErrTournamentInvalidPrize, s.Place, s.Percent)
		}
		if _, dup := places[s.Place]; dup {
			return fmt.Errorf("%w: place %d listed twice", ErrTournamentInvalidPrize, s.Place)
		}
		places[s.Place] = struct{}{}
		total += s.Percent
	}
	if total > 100 {
		return fmt.Errorf("%w: distribution adds up to %.2f%%", ErrTournamentInvalidPrize, total)
	}
	return nil
}

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисов.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRegistrationNotFound):
		return ErrRegistrationNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamNotFound), errors.Is(err, repositories.ErrRegistrationTeamInvalid):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrGameNotFound), errors.Is(err, repositories.ErrTournamentInvalidGame):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrRegistrationConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrGameNameConflict):
		return ErrGameNameConflict
	case errors.Is(err, repositories.ErrTournamentInvalidData), errors.Is(err, repositories.ErrMatchInvalidData):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}

func populateBannerURL(t *models.Tournament, uploader storage.FileUploader) {
	if t == nil || t.BannerKey == nil || *t.BannerKey == "" || uploader == nil {
		return
	}
	if u := uploader.GetPublicURL(*t.BannerKey); u != "" {
		t.BannerURL = &u
	}
}

// publish is best effort: the state change is already committed.
func publish(ctx context.Context, publisher events.Publisher, logger *slog.Logger, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, payload); err != nil {
		logger.WarnContext(ctx, "failed to publish event", slog.String("event", eventType), slog.Any("error", err))
	}
}
