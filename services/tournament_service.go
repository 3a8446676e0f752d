package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
)

const tournamentBannerPrefix = "tournaments/banners"

type CreateTournamentInput struct {
	Name                 string              `json:"name"`
	Description          *string             `json:"description"`
	GameID               int                 `json:"game_id"`
	BracketType          models.BracketType  `json:"bracket_type"`
	MaxParticipants      int                 `json:"max_participants"`
	IsTeamBased          bool                `json:"is_team_based"`
	TeamSize             int                 `json:"team_size"`
	PrizePool            float64             `json:"prize_pool"`
	PrizeDistribution    []models.PrizeShare `json:"prize_distribution"`
	StartDate            time.Time           `json:"start_date"`
	EndDate              *time.Time          `json:"end_date"`
	RegistrationDeadline *time.Time          `json:"registration_deadline"`
	Rules                *string             `json:"rules"`
}

// UpdateTournamentInput: nil fields stay unchanged.
type UpdateTournamentInput struct {
	Name                 *string              `json:"name"`
	Description          *string              `json:"description"`
	MaxParticipants      *int                 `json:"max_participants"`
	TeamSize             *int                 `json:"team_size"`
	PrizePool            *float64             `json:"prize_pool"`
	PrizeDistribution    *[]models.PrizeShare `json:"prize_distribution"`
	StartDate            *time.Time           `json:"start_date"`
	EndDate              *time.Time           `json:"end_date"`
	RegistrationDeadline *time.Time           `json:"registration_deadline"`
	Rules                *string              `json:"rules"`
}

type BracketRound struct {
	Round   int             `json:"round"`
	Matches []*models.Match `json:"matches"`
}

type BracketSideView struct {
	Side   models.BracketSide `json:"side"`
	Rounds []BracketRound     `json:"rounds"`
}

// BracketView is everything a client needs to draw the bracket of one tournament.
type BracketView struct {
	Tournament   *models.Tournament     `json:"tournament"`
	Participants []*models.Registration `json:"participants"`
	Sides        []BracketSideView      `json:"sides"`
	Standings    []models.Standing      `json:"standings,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, actor models.Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, actor models.Actor, id int, input UpdateTournamentInput) (*models.Tournament, error)
	ChangeStatus(ctx context.Context, actor models.Actor, id int, status models.TournamentStatus) (*models.Tournament, error)
	UploadBanner(ctx context.Context, actor models.Actor, id int, contentType string, file io.Reader) (*models.Tournament, error)
	GetBracket(ctx context.Context, id int) (*BracketView, error)
	// CloseExpiredRegistrations records the closing of registrations whose deadline has passed.
	// Status is left as is: the organizer still takes the tournament live from registration.
	CloseExpiredRegistrations(ctx context.Context, now time.Time) (int, error)
}

type tournamentService struct {
	txManager        repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	gameRepo         repositories.GameRepository
	bracketService   BracketService
	uploader         storage.FileUploader
	publisher        events.Publisher
	logger           *slog.Logger
}

func NewTournamentService(
	txManager repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	gameRepo repositories.GameRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	publisher events.Publisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		gameRepo:         gameRepo,
		bracketService:   bracketService,
		uploader:         uploader,
		publisher:        publisher,
		logger:           logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor models.Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !actor.IsAdmin() && !actor.HasRole(models.RoleOrganizer) {
		return nil, fmt.Errorf("%w: organizer or admin role required", ErrForbiddenOperation)
	}
	if _, err := s.gameRepo.GetByID(ctx, input.GameID); err != nil {
		return nil, handleRepositoryError(err)
	}

	name := strings.TrimSpace(input.Name)
	tournament := &models.Tournament{
		Name:                 name,
		Slug:                 slug.Make(name),
		Description:          input.Description,
		GameID:               input.GameID,
		OrganizerID:          actor.UserID,
		BracketType:          input.BracketType,
		MaxParticipants:      input.MaxParticipants,
		IsTeamBased:          input.IsTeamBased,
		TeamSize:             input.TeamSize,
		PrizePool:            input.PrizePool,
		PrizeDistribution:    input.PrizeDistribution,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		Status:               models.StatusDraft,
		Rules:                input.Rules,
	}
	if !tournament.IsTeamBased {
		tournament.TeamSize = 1
	}
	if err := validateTournamentFields(tournament); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("organizer_id", tournament.OrganizerID),
		slog.String("bracket_type", string(tournament.BracketType)),
	)
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	populateBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		populateBannerURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, actor models.Actor, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	var updated *models.Tournament
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		if !tournament.Status.Editable() {
			return ErrTournamentNotEditable
		}

		if input.Name != nil {
			tournament.Name = strings.TrimSpace(*input.Name)
			tournament.Slug = slug.Make(tournament.Name)
		}
		if input.Description != nil {
			tournament.Description = input.Description
		}
		if input.MaxParticipants != nil {
			tournament.MaxParticipants = *input.MaxParticipants
		}
		if input.TeamSize != nil && tournament.IsTeamBased {
			tournament.TeamSize = *input.TeamSize
		}
		if input.PrizePool != nil {
			tournament.PrizePool = *input.PrizePool
		}
		if input.PrizeDistribution != nil {
			tournament.PrizeDistribution = *input.PrizeDistribution
		}
		if input.StartDate != nil {
			tournament.StartDate = *input.StartDate
		}
		if input.EndDate != nil {
			tournament.EndDate = input.EndDate
		}
		if input.RegistrationDeadline != nil {
			tournament.RegistrationDeadline = input.RegistrationDeadline
			// новый дедлайн: задача закрытия отработает заново
			tournament.RegistrationClosedAt = nil
		}
		if input.Rules != nil {
			tournament.Rules = input.Rules
		}
		if err := validateTournamentFields(tournament); err != nil {
			return err
		}

		if input.MaxParticipants != nil {
			active, err := s.registrationRepo.CountActive(ctx, exec, id)
			if err != nil {
				return fmt.Errorf("failed to count registrations of tournament %d: %w", id, err)
			}
			if active > tournament.MaxParticipants {
				return fmt.Errorf("%w (registrations %d, requested %d)", ErrCapacityBelowRegistrations, active, tournament.MaxParticipants)
			}
		}

		if err := s.tournamentRepo.Update(ctx, exec, tournament); err != nil {
			return handleRepositoryError(err)
		}
		updated = tournament
		return nil
	})
	if err != nil {
		return nil, err
	}
	populateBannerURL(updated, s.uploader)
	s.logger.InfoContext(ctx, "tournament updated", slog.Int("tournament_id", id), slog.Int("actor_id", actor.UserID))
	return updated, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, actor models.Actor, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrTournamentInvalidStatus, status)
	}

	var (
		tournament *models.Tournament
		from       models.TournamentStatus
	)
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		var err error
		tournament, err = s.tournamentRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		from = tournament.Status
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: from '%s' to '%s'", ErrTournamentInvalidStatusTransition, from, status)
		}

		switch status {
		case models.StatusLive:
			count, err := s.matchRepo.CountByTournament(ctx, exec, id)
			if err != nil {
				return fmt.Errorf("failed to count matches of tournament %d: %w", id, err)
			}
			if count == 0 {
				if _, err := s.bracketService.GenerateInTx(ctx, exec, tournament); err != nil {
					return err
				}
			}
		case models.StatusDraft:
			count, err := s.matchRepo.CountByTournament(ctx, exec, id)
			if err != nil {
				return fmt.Errorf("failed to count matches of tournament %d: %w", id, err)
			}
			if count > 0 {
				return fmt.Errorf("%w: bracket is already generated", ErrTournamentInvalidStatusTransition)
			}
		case models.StatusCompleted:
			matches, err := s.matchRepo.ListByTournament(ctx, exec, id)
			if err != nil {
				return fmt.Errorf("failed to list matches of tournament %d: %w", id, err)
			}
			for _, m := range matches {
				if m.Status != models.MatchCompleted {
					return fmt.Errorf("%w: match %d is %s", ErrBracketIncomplete, m.ID, m.Status)
				}
			}
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, id, status); err != nil {
			return handleRepositoryError(err)
		}
		tournament.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament status changed",
		slog.Int("tournament_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(status)),
	)
	publish(ctx, s.publisher, s.logger, events.TournamentStatusChanged, events.TournamentStatusChangedPayload{
		TournamentID: id,
		From:         from,
		To:           status,
	})
	populateBannerURL(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, actor models.Actor, id int, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !canManage(actor, tournament) {
		return nil, ErrNotOwner
	}
	if !tournament.Status.Editable() {
		return nil, ErrTournamentNotEditable
	}

	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileType, err)
	}
	key := storage.NewObjectKey(tournamentBannerPrefix, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload banner for tournament %d: %w", id, err)
	}

	oldKey := tournament.BannerKey
	if err := s.tournamentRepo.UpdateBannerKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned banner", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, handleRepositoryError(err)
	}
	if oldKey != nil && *oldKey != "" && *oldKey != key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete old banner", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	tournament.BannerKey = &key
	populateBannerURL(tournament, s.uploader)
	s.logger.InfoContext(ctx, "tournament banner uploaded", slog.Int("tournament_id", id), slog.String("key", key))
	return tournament, nil
}

func (s *tournamentService) GetBracket(ctx context.Context, id int) (*BracketView, error) {
	var (
		tournament    *models.Tournament
		registrations []*models.Registration
		matches       []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Турнир
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, nil, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		tournament = t
		return nil
	})

	// 2. Подтвержденные участники
	g.Go(func() error {
		confirmed := models.RegistrationConfirmed
		regs, err := s.registrationRepo.ListByTournament(gCtx, nil, id, &confirmed)
		if err != nil {
			return fmt.Errorf("failed to list confirmed registrations of tournament %d: %w", id, err)
		}
		registrations = regs
		return nil
	})

	// 3. Матчи
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return fmt.Errorf("failed to list matches of tournament %d: %w", id, err)
		}
		matches = list
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	populateBannerURL(tournament, s.uploader)
	view := &BracketView{
		Tournament:   tournament,
		Participants: registrations,
		Sides:        groupBracket(matches),
	}
	if tournament.BracketType == models.BracketRoundRobin {
		ids := make([]int, 0, len(registrations))
		for _, r := range registrations {
			ids = append(ids, r.ParticipantID())
		}
		view.Standings = ComputeStandings(ids, matches)
	}
	return view, nil
}

func groupBracket(matches []*models.Match) []BracketSideView {
	order := []models.BracketSide{
		models.SideGroup,
		models.SideWinners,
		models.SidePlayoff,
		models.SideLosers,
		models.SideGrandFinal,
	}
	bySide := make(map[models.BracketSide]map[int][]*models.Match)
	for _, m := range matches {
		if bySide[m.Side] == nil {
			bySide[m.Side] = make(map[int][]*models.Match)
		}
		bySide[m.Side][m.Round] = append(bySide[m.Side][m.Round], m)
	}

	sides := make([]BracketSideView, 0, len(bySide))
	for _, side := range order {
		rounds, ok := bySide[side]
		if !ok {
			continue
		}
		view := BracketSideView{Side: side}
		minRound, maxRound := -1, 0
		for r := range rounds {
			if minRound == -1 || r < minRound {
				minRound = r
			}
			if r > maxRound {
				maxRound = r
			}
		}
		for r := minRound; r <= maxRound; r++ {
			if list, ok := rounds[r]; ok {
				view.Rounds = append(view.Rounds, BracketRound{Round: r, Matches: list})
			}
		}
		sides = append(sides, view)
	}
	return sides
}

func (s *tournamentService) CloseExpiredRegistrations(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.tournamentRepo.ListRegistrationExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments with expired registration: %w", err)
	}

	closed := 0
	var errs []error
	for _, candidate := range expired {
		id := candidate.ID
		var payload *events.RegistrationClosedPayload
		err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, id)
			if err != nil {
				return err
			}
			if tournament.Status != models.StatusRegistration || tournament.RegistrationClosedAt != nil {
				return nil
			}
			if tournament.RegistrationDeadline == nil || tournament.RegistrationDeadline.After(now) {
				return nil
			}
			confirmedStatus := models.RegistrationConfirmed
			confirmed, err := s.registrationRepo.ListByTournament(ctx, exec, id, &confirmedStatus)
			if err != nil {
				return err
			}
			if err := s.tournamentRepo.MarkRegistrationClosed(ctx, exec, id, now); err != nil {
				return err
			}
			payload = &events.RegistrationClosedPayload{
				TournamentID: id,
				Deadline:     *tournament.RegistrationDeadline,
				Confirmed:    len(confirmed),
			}
			return nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to close expired registration", slog.Int("tournament_id", id), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("tournament %d: %w", id, err))
			continue
		}
		if payload == nil {
			continue
		}
		closed++
		s.logger.InfoContext(ctx, "registration closed after deadline",
			slog.Int("tournament_id", id),
			slog.Int("confirmed", payload.Confirmed),
		)
		if payload.Confirmed < 2 {
			s.logger.WarnContext(ctx, "not enough confirmed participants to start tournament", slog.Int("tournament_id", id))
		}
		publish(ctx, s.publisher, s.logger, events.RegistrationClosed, *payload)
	}
	return closed, errors.Join(errs...)
}
