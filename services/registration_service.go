package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type RegistrationService interface {
	// Register creates a pending registration of the actor (solo) or of teamID (team tournaments).
	Register(ctx context.Context, actor models.Actor, tournamentID int, teamID *int) (*models.Registration, error)
	UpdateStatus(ctx context.Context, actor models.Actor, registrationID int, status models.RegistrationStatus) (*models.Registration, error)
	Cancel(ctx context.Context, actor models.Actor, registrationID int) (*models.Registration, error)
	SetSeed(ctx context.Context, actor models.Actor, registrationID int, seed *int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error)
}

type registrationService struct {
	txManager        repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	teamRepo         repositories.TeamRepository
	logger           *slog.Logger
	now              func() time.Time
}

func NewRegistrationService(
	txManager repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		teamRepo:         teamRepo,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, actor models.Actor, tournamentID int, teamID *int) (*models.Registration, error) {
	var reg *models.Registration
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// блокировка турнира сериализует подсчёт мест
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !tournament.RegistrationOpenAt(s.now()) {
			return ErrRegistrationClosed
		}
		if locked, err := s.bracketExists(ctx, exec, tournamentID); err != nil {
			return err
		} else if locked {
			return ErrRegistrationClosed
		}

		active, err := s.registrationRepo.CountActive(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to count registrations of tournament %d: %w", tournamentID, err)
		}
		if active >= tournament.MaxParticipants {
			return ErrTournamentFull
		}

		reg = &models.Registration{
			TournamentID: tournamentID,
			Status:       models.RegistrationPending,
		}
		if tournament.IsTeamBased {
			if teamID == nil {
				return ErrRegistrationTeamRequired
			}
			team, err := s.teamRepo.GetByID(ctx, exec, *teamID)
			if err != nil {
				return handleRepositoryError(err)
			}
			if team.CaptainID != actor.UserID {
				return ErrNotCaptain
			}
			if _, err := s.registrationRepo.FindActiveByTeam(ctx, exec, tournamentID, team.ID); err == nil {
				return ErrRegistrationConflict
			} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
				return err
			}
			reg.TeamID = intPtr(team.ID)
		} else {
			if teamID != nil {
				return ErrRegistrationTeamNotAllowed
			}
			if _, err := s.registrationRepo.FindActiveByUser(ctx, exec, tournamentID, actor.UserID); err == nil {
				return ErrRegistrationConflict
			} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
				return err
			}
			reg.UserID = intPtr(actor.UserID)
		}

		if err := s.registrationRepo.Create(ctx, exec, reg); err != nil {
			return handleRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration created",
		slog.Int("registration_id", reg.ID),
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", reg.ParticipantID()),
	)
	return reg, nil
}

func (s *registrationService) UpdateStatus(ctx context.Context, actor models.Actor, registrationID int, status models.RegistrationStatus) (*models.Registration, error) {
	if status != models.RegistrationConfirmed && status != models.RegistrationRejected {
		return nil, fmt.Errorf("%w: %q", ErrRegistrationInvalidStatus, status)
	}

	var reg *models.Registration
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, reg.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		if err := s.ensureRegistrationsMutable(ctx, exec, tournament); err != nil {
			return err
		}
		if reg.Status != models.RegistrationPending {
			return fmt.Errorf("%w: from '%s' to '%s'", ErrRegistrationInvalidTransition, reg.Status, status)
		}

		if err := s.registrationRepo.UpdateStatus(ctx, exec, reg.ID, status); err != nil {
			return handleRepositoryError(err)
		}
		reg.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration status updated",
		slog.Int("registration_id", registrationID),
		slog.String("status", string(status)),
		slog.Int("actor_id", actor.UserID),
	)
	return reg, nil
}

func (s *registrationService) Cancel(ctx context.Context, actor models.Actor, registrationID int) (*models.Registration, error) {
	var reg *models.Registration
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			return handleRepositoryError(err)
		}

		if reg.TeamID != nil {
			team, err := s.teamRepo.GetByID(ctx, exec, *reg.TeamID)
			if err != nil {
				return handleRepositoryError(err)
			}
			if team.CaptainID != actor.UserID {
				return ErrNotCaptain
			}
		} else if reg.UserID == nil || *reg.UserID != actor.UserID {
			return fmt.Errorf("%w: only the registrant can cancel this registration", ErrForbiddenOperation)
		}

		if !reg.Status.Active() {
			return fmt.Errorf("%w: registration is already '%s'", ErrRegistrationInvalidTransition, reg.Status)
		}

		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, reg.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if tournament.Status != models.StatusRegistration {
			return ErrRegistrationLocked
		}
		if locked, err := s.bracketExists(ctx, exec, tournament.ID); err != nil {
			return err
		} else if locked {
			return ErrRegistrationLocked
		}

		if err := s.registrationRepo.UpdateStatus(ctx, exec, reg.ID, models.RegistrationCancelled); err != nil {
			return handleRepositoryError(err)
		}
		reg.Status = models.RegistrationCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registration cancelled", slog.Int("registration_id", registrationID), slog.Int("actor_id", actor.UserID))
	return reg, nil
}

func (s *registrationService) SetSeed(ctx context.Context, actor models.Actor, registrationID int, seed *int) (*models.Registration, error) {
	if seed != nil && *seed < 1 {
		return nil, ErrInvalidSeed
	}

	var reg *models.Registration
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		reg, err = s.registrationRepo.GetByID(ctx, exec, registrationID)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, reg.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		if err := s.ensureRegistrationsMutable(ctx, exec, tournament); err != nil {
			return err
		}
		if err := s.registrationRepo.UpdateSeed(ctx, exec, reg.ID, seed); err != nil {
			return handleRepositoryError(err)
		}
		reg.Seed = seed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	if status != nil && !status.Valid() {
		return nil, ErrRegistrationInvalidStatus
	}
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.registrationRepo.ListByTournament(ctx, nil, tournamentID, status)
}

// ensureRegistrationsMutable: состав участников меняется только до генерации сетки.
func (s *registrationService) ensureRegistrationsMutable(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) error {
	if !tournament.Status.Editable() {
		return ErrRegistrationLocked
	}
	locked, err := s.bracketExists(ctx, exec, tournament.ID)
	if err != nil {
		return err
	}
	if locked {
		return ErrRegistrationLocked
	}
	return nil
}

func (s *registrationService) bracketExists(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (bool, error) {
	count, err := s.matchRepo.CountByTournament(ctx, exec, tournamentID)
	if err != nil {
		return false, fmt.Errorf("failed to count matches of tournament %d: %w", tournamentID, err)
	}
	return count > 0, nil
}
