package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-platform/brackets"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type BracketService interface {
	// Generate materializes the bracket of a tournament on explicit request of its organizer.
	Generate(ctx context.Context, actor models.Actor, tournamentID int) ([]*models.Match, error)
	// GenerateInTx materializes the bracket inside the caller's transaction; the tournament row
	// must already be locked.
	GenerateInTx(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]*models.Match, error)
	// GeneratePlayoff appends a single elimination stage among the top finishers of a round robin.
	GeneratePlayoff(ctx context.Context, actor models.Actor, tournamentID int, size int) ([]*models.Match, error)
	Standings(ctx context.Context, tournamentID int) ([]models.Standing, error)
}

type bracketService struct {
	txManager        repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	logger           *slog.Logger
	now              func() time.Time
}

func NewBracketService(
	txManager repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *bracketService) Generate(ctx context.Context, actor models.Actor, tournamentID int) ([]*models.Match, error) {
	var created []*models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusLive {
			return ErrBracketNotAllowed
		}
		created, err = s.GenerateInTx(ctx, exec, tournament)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *bracketService) GenerateInTx(ctx context.Context, exec repositories.SQLExecutor, tournament *models.Tournament) ([]*models.Match, error) {
	existing, err := s.matchRepo.CountByTournament(ctx, exec, tournament.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches of tournament %d: %w", tournament.ID, err)
	}
	if existing > 0 {
		return nil, ErrAlreadyGenerated
	}

	participants, err := s.confirmedParticipants(ctx, exec, tournament.ID)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.NewGenerator(tournament.BracketType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidBracket, err)
	}
	s.logger.InfoContext(ctx, "starting bracket generation",
		slog.Int("tournament_id", tournament.ID),
		slog.String("generator", generator.GetName()),
		slog.Int("participants", len(participants)),
	)

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID: tournament.ID,
		Participants: participants,
	})
	if err != nil {
		return nil, mapGeneratorError(tournament.ID, err)
	}
	return s.persist(ctx, exec, tournament.ID, generated)
}

func (s *bracketService) GeneratePlayoff(ctx context.Context, actor models.Actor, tournamentID int, size int) ([]*models.Match, error) {
	var created []*models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !canManage(actor, tournament) {
			return ErrNotOwner
		}
		if tournament.BracketType != models.BracketRoundRobin {
			return ErrPlayoffNotSupported
		}
		if tournament.Status != models.StatusLive {
			return ErrTournamentNotLive
		}

		matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
		}
		lastGroupRound := 0
		for _, m := range matches {
			if m.Side == models.SidePlayoff {
				return ErrAlreadyGenerated
			}
			if m.Status != models.MatchCompleted {
				return ErrBracketIncomplete
			}
			if m.Round > lastGroupRound {
				lastGroupRound = m.Round
			}
		}

		participants, err := s.confirmedParticipants(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if size < 2 || size > len(participants) {
			return fmt.Errorf("%w (got %d, participants %d)", ErrInvalidPlayoffSize, size, len(participants))
		}

		standings := ComputeStandings(participants, matches)
		top := make([]int, 0, size)
		for _, st := range standings[:size] {
			top = append(top, st.ParticipantID)
		}

		generated, err := brackets.NewSingleEliminationGenerator().GenerateBracket(ctx, brackets.GenerateBracketParams{
			TournamentID: tournamentID,
			Participants: top,
			Side:         models.SidePlayoff,
			FirstRound:   lastGroupRound + 1,
		})
		if err != nil {
			return mapGeneratorError(tournamentID, err)
		}
		created, err = s.persist(ctx, exec, tournamentID, generated)
		if err != nil {
			return err
		}
		// чемпиона теперь определит плей-офф
		if tournament.ChampionID != nil {
			if err := s.tournamentRepo.UpdateChampion(ctx, exec, tournamentID, nil); err != nil {
				return fmt.Errorf("failed to reset champion of tournament %d: %w", tournamentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "playoff generated", slog.Int("tournament_id", tournamentID), slog.Int("size", size))
	return created, nil
}

func (s *bracketService) Standings(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if tournament.BracketType != models.BracketRoundRobin {
		return nil, ErrStandingsNotSupported
	}
	participants, err := s.confirmedParticipants(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	return ComputeStandings(participants, matches), nil
}

// confirmedParticipants returns participant ids ordered by seed, then by registration time.
func (s *bracketService) confirmedParticipants(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]int, error) {
	confirmed := models.RegistrationConfirmed
	regs, err := s.registrationRepo.ListByTournament(ctx, exec, tournamentID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed registrations for tournament %d: %w", tournamentID, err)
	}
	ids := make([]int, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.ParticipantID())
	}
	return ids, nil
}

// persist сохраняет сгенерированный граф в два прохода: сначала матчи, потом связи между ними.
func (s *bracketService) persist(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, generated []*brackets.BracketMatch) ([]*models.Match, error) {
	now := s.now().UTC()
	byUID := make(map[string]*models.Match, len(generated))
	created := make([]*models.Match, 0, len(generated))

	// ПЕРВЫЙ ПРОХОД
	for _, bm := range generated {
		m := &models.Match{
			TournamentID:    tournamentID,
			BracketMatchUID: bm.UID,
			Side:            bm.Side,
			Round:           bm.Round,
			MatchNumber:     bm.OrderInRound,
			Participant1ID:  bm.Participant1ID,
			Participant2ID:  bm.Participant2ID,
			Status:          models.MatchPending,
			IsBye:           bm.IsBye,
		}
		if bm.IsBye && bm.ByeParticipantID != nil {
			m.Status = models.MatchCompleted
			m.WinnerID = intPtr(*bm.ByeParticipantID)
			m.CompletedAt = timePtr(now)
		}
		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		byUID[bm.UID] = m
		created = append(created, m)
	}

	// ВТОРОЙ ПРОХОД
	for _, bm := range generated {
		if bm.WinnerTo == nil && bm.LoserTo == nil {
			continue
		}
		m := byUID[bm.UID]
		if bm.WinnerTo != nil {
			next, ok := byUID[bm.WinnerTo.UID]
			if !ok {
				return nil, fmt.Errorf("match %s points at unknown match %s", bm.UID, bm.WinnerTo.UID)
			}
			m.NextMatchID = intPtr(next.ID)
			m.NextSlot = intPtr(bm.WinnerTo.Slot)
		}
		if bm.LoserTo != nil {
			next, ok := byUID[bm.LoserTo.UID]
			if !ok {
				return nil, fmt.Errorf("match %s points at unknown match %s", bm.UID, bm.LoserTo.UID)
			}
			m.LoserNextMatchID = intPtr(next.ID)
			m.LoserNextSlot = intPtr(bm.LoserTo.Slot)
		}
		if err := s.matchRepo.UpdateLinks(ctx, exec, m); err != nil {
			return nil, fmt.Errorf("failed to link match %s: %w", bm.UID, err)
		}
	}

	s.logger.InfoContext(ctx, "bracket matches saved", slog.Int("tournament_id", tournamentID), slog.Int("matches", len(created)))
	return created, nil
}

func mapGeneratorError(tournamentID int, err error) error {
	switch {
	case errors.Is(err, brackets.ErrInsufficientParticipants):
		return ErrInsufficientParticipants
	case errors.Is(err, brackets.ErrDuplicateParticipant):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return fmt.Errorf("failed to generate bracket structure for tournament %d: %w", tournamentID, err)
}
