package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/esports-platform/brackets"
	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

// maxResultAttempts ограничивает повторы транзакции при конфликте версий рейтинга.
const maxResultAttempts = 3

type RecordResultInput struct {
	WinnerID int  `json:"winner_id"`
	Score1   *int `json:"score1"`
	Score2   *int `json:"score2"`
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	StartMatch(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error)
	MarkDisputed(ctx context.Context, actor models.Actor, matchID int, notes *string) (*models.Match, error)
	// RecordResult sets or overwrites the result of a match and moves participants along the bracket.
	RecordResult(ctx context.Context, actor models.Actor, matchID int, input RecordResultInput) (*models.Match, error)
}

type matchService struct {
	txManager        repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	ratingService    RatingService
	publisher        events.Publisher
	logger           *slog.Logger
	now              func() time.Time
}

func NewMatchService(
	txManager repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	ratingService RatingService,
	publisher events.Publisher,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		ratingService:    ratingService,
		publisher:        publisher,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %d: %w", tournamentID, err)
	}
	return matches, nil
}

// lockManaged locks the match and its tournament and checks that actor may manage a live tournament.
func (s *matchService) lockManaged(ctx context.Context, exec repositories.SQLExecutor, actor models.Actor, matchID int) (*models.Match, *models.Tournament, error) {
	m, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, nil, handleRepositoryError(err)
	}
	tournament, err := s.tournamentRepo.GetForUpdate(ctx, exec, m.TournamentID)
	if err != nil {
		return nil, nil, handleRepositoryError(err)
	}
	if !canManage(actor, tournament) {
		return nil, nil, ErrNotManager
	}
	if tournament.Status != models.StatusLive {
		return nil, nil, ErrTournamentNotLive
	}
	return m, tournament, nil
}

func (s *matchService) StartMatch(ctx context.Context, actor models.Actor, matchID int) (*models.Match, error) {
	var started *models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, _, err := s.lockManaged(ctx, exec, actor, matchID)
		if err != nil {
			return err
		}
		if m.IsBye || m.Participant1ID == nil || m.Participant2ID == nil {
			return ErrMatchNotReady
		}
		if m.Status != models.MatchPending {
			return fmt.Errorf("%w: from '%s' to '%s'", ErrMatchInvalidTransition, m.Status, models.MatchInProgress)
		}
		m.Status = models.MatchInProgress
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		started = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "match started", slog.Int("match_id", matchID), slog.Int("tournament_id", started.TournamentID))
	return started, nil
}

func (s *matchService) MarkDisputed(ctx context.Context, actor models.Actor, matchID int, notes *string) (*models.Match, error) {
	var disputed *models.Match
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, _, err := s.lockManaged(ctx, exec, actor, matchID)
		if err != nil {
			return err
		}
		if m.IsBye || (m.Status != models.MatchInProgress && m.Status != models.MatchCompleted) {
			return fmt.Errorf("%w: from '%s' to '%s'", ErrMatchInvalidTransition, m.Status, models.MatchDisputed)
		}
		m.Status = models.MatchDisputed
		if notes != nil {
			m.Notes = notes
		}
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		disputed = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WarnContext(ctx, "match marked as disputed", slog.Int("match_id", matchID), slog.Int("actor_id", actor.UserID))
	return disputed, nil
}

func (s *matchService) RecordResult(ctx context.Context, actor models.Actor, matchID int, input RecordResultInput) (*models.Match, error) {
	if (input.Score1 != nil && *input.Score1 < 0) || (input.Score2 != nil && *input.Score2 < 0) {
		return nil, ErrInvalidScore
	}

	var (
		p   *progression
		err error
	)
	for attempt := 1; ; attempt++ {
		p, err = s.recordResultOnce(ctx, actor, matchID, input)
		if !errors.Is(err, repositories.ErrRankingVersionConflict) {
			break
		}
		if attempt >= maxResultAttempts {
			s.logger.ErrorContext(ctx, "giving up on match result after rating conflicts", slog.Int("match_id", matchID), slog.Int("attempts", attempt))
			return nil, ErrRatingConflict
		}
		s.logger.WarnContext(ctx, "rating version conflict, retrying match result", slog.Int("match_id", matchID), slog.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match result recorded",
		slog.Int("match_id", matchID),
		slog.Int("tournament_id", p.tournament.ID),
		slog.Int("winner_id", input.WinnerID),
		slog.Bool("correction", p.correction),
	)
	for _, payload := range p.completed {
		publish(ctx, s.publisher, s.logger, events.MatchCompleted, payload)
	}
	for _, change := range p.ratings {
		publish(ctx, s.publisher, s.logger, events.RankingUpdated, events.RankingUpdatedPayload{
			UserID:    change.UserID,
			GameID:    change.GameID,
			MatchID:   change.MatchID,
			EloRating: change.EloRating,
			EloChange: change.EloChange,
		})
	}
	return p.matches[matchID], nil
}

func (s *matchService) recordResultOnce(ctx context.Context, actor models.Actor, matchID int, input RecordResultInput) (*progression, error) {
	var p *progression
	err := s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, tournament, err := s.lockManaged(ctx, exec, actor, matchID)
		if err != nil {
			return err
		}
		all, err := s.matchRepo.ListByTournament(ctx, exec, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to list matches of tournament %d: %w", tournament.ID, err)
		}
		p = newProgression(ctx, s, exec, tournament, all)
		m, ok := p.matches[locked.ID]
		if !ok {
			return ErrMatchNotFound
		}
		return p.record(m, input)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// progression holds one tournament's bracket while a result travels through it.
type progression struct {
	ctx        context.Context
	s          *matchService
	exec       repositories.SQLExecutor
	tournament *models.Tournament
	matches    map[int]*models.Match
	now        time.Time

	correction bool
	completed  []events.MatchCompletedPayload
	ratings    []RatingChange
}

func newProgression(ctx context.Context, s *matchService, exec repositories.SQLExecutor, tournament *models.Tournament, all []*models.Match) *progression {
	p := &progression{
		ctx:        ctx,
		s:          s,
		exec:       exec,
		tournament: tournament,
		matches:    make(map[int]*models.Match, len(all)),
		now:        s.now().UTC(),
	}
	for _, m := range all {
		p.matches[m.ID] = m
	}
	return p
}

func (p *progression) record(m *models.Match, input RecordResultInput) error {
	if m.IsBye || m.Participant1ID == nil || m.Participant2ID == nil {
		return ErrMatchNotReady
	}
	if !m.HasParticipant(input.WinnerID) {
		return fmt.Errorf("%w: participant %d is not in match %d", ErrInvalidWinner, input.WinnerID, m.ID)
	}

	p.correction = m.Decided()
	winnerChanged := m.WinnerID == nil || *m.WinnerID != input.WinnerID
	if p.correction && winnerChanged {
		if p.downstreamLocked(m) {
			return ErrMatchLocked
		}
		if m.Side == models.SideGroup && p.hasSide(models.SidePlayoff) {
			return ErrMatchLocked
		}
	}

	m.Score1 = input.Score1
	m.Score2 = input.Score2
	m.WinnerID = intPtr(input.WinnerID)
	m.Status = models.MatchCompleted
	if m.CompletedAt == nil || winnerChanged {
		m.CompletedAt = timePtr(p.now)
	}

	if !p.tournament.IsTeamBased {
		changes, err := p.s.ratingService.ApplyMatch(p.ctx, p.exec, p.tournament.GameID, m)
		if err != nil {
			return err
		}
		p.ratings = append(p.ratings, changes...)
	}
	if err := p.save(m); err != nil {
		return err
	}
	p.completed = append(p.completed, events.MatchCompletedPayload{
		TournamentID: m.TournamentID,
		MatchID:      m.ID,
		WinnerID:     input.WinnerID,
		LoserID:      m.LoserID(),
		Score1:       m.Score1,
		Score2:       m.Score2,
		Correction:   p.correction,
	})

	if !winnerChanged {
		return nil
	}
	if m.NextMatchID != nil {
		if err := p.place(*m.NextMatchID, *m.NextSlot, input.WinnerID); err != nil {
			return err
		}
	}
	if m.LoserNextMatchID != nil {
		if err := p.place(*m.LoserNextMatchID, *m.LoserNextSlot, *m.LoserID()); err != nil {
			return err
		}
	}
	return p.settleChampion(m)
}

// downstreamLocked reports whether a match fed by m has already been played or started.
// Auto-completed byes are walked through.
func (p *progression) downstreamLocked(m *models.Match) bool {
	for _, id := range []*int{m.NextMatchID, m.LoserNextMatchID} {
		if id == nil {
			continue
		}
		target, ok := p.matches[*id]
		if !ok {
			continue
		}
		if target.IsBye {
			if p.downstreamLocked(target) {
				return true
			}
			continue
		}
		if target.Status != models.MatchPending {
			return true
		}
	}
	if m.Side == models.SideGrandFinal && !m.IsReset && p.resetMatch() != nil {
		return true
	}
	return false
}

// place puts participantID into a slot; a bye completes at once and passes it further.
func (p *progression) place(matchID, slot, participantID int) error {
	target, ok := p.matches[matchID]
	if !ok {
		return fmt.Errorf("bracket link points at missing match %d", matchID)
	}
	target.SetSlot(slot, intPtr(participantID))

	if !target.IsBye {
		return p.save(target)
	}

	target.WinnerID = intPtr(participantID)
	target.Status = models.MatchCompleted
	target.CompletedAt = timePtr(p.now)
	if err := p.save(target); err != nil {
		return err
	}
	p.completed = append(p.completed, events.MatchCompletedPayload{
		TournamentID: target.TournamentID,
		MatchID:      target.ID,
		WinnerID:     participantID,
		IsBye:        true,
	})
	if target.NextMatchID != nil {
		return p.place(*target.NextMatchID, *target.NextSlot, participantID)
	}
	return nil
}

func (p *progression) settleChampion(m *models.Match) error {
	switch {
	case m.Side == models.SideGrandFinal && m.IsReset:
		return p.setChampion(m.WinnerID)

	case m.Side == models.SideGrandFinal:
		// победа участника из нижней сетки: нужен второй финал
		if m.Participant2ID != nil && *m.WinnerID == *m.Participant2ID {
			if err := p.createReset(m); err != nil {
				return err
			}
			return p.setChampion(nil)
		}
		return p.setChampion(m.WinnerID)

	case (m.Side == models.SideWinners || m.Side == models.SidePlayoff) && m.NextMatchID == nil:
		return p.setChampion(m.WinnerID)

	case m.Side == models.SideGroup:
		if p.hasSide(models.SidePlayoff) {
			return nil
		}
		for _, other := range p.matches {
			if other.Side == models.SideGroup && other.Status != models.MatchCompleted {
				return nil
			}
		}
		confirmed := models.RegistrationConfirmed
		regs, err := p.s.registrationRepo.ListByTournament(p.ctx, p.exec, p.tournament.ID, &confirmed)
		if err != nil {
			return fmt.Errorf("failed to list confirmed registrations of tournament %d: %w", p.tournament.ID, err)
		}
		ids := make([]int, 0, len(regs))
		for _, r := range regs {
			ids = append(ids, r.ParticipantID())
		}
		standings := ComputeStandings(ids, p.allMatches())
		if len(standings) == 0 {
			return nil
		}
		return p.setChampion(intPtr(standings[0].ParticipantID))
	}
	return nil
}

func (p *progression) createReset(gf *models.Match) error {
	if p.resetMatch() != nil {
		return nil
	}
	reset := &models.Match{
		TournamentID:    gf.TournamentID,
		BracketMatchUID: brackets.ResetMatchUID,
		Side:            models.SideGrandFinal,
		Round:           gf.Round + 1,
		MatchNumber:     1,
		Participant1ID:  gf.Participant1ID,
		Participant2ID:  gf.Participant2ID,
		Status:          models.MatchPending,
		IsReset:         true,
	}
	if err := p.s.matchRepo.Create(p.ctx, p.exec, reset); err != nil {
		return fmt.Errorf("failed to create bracket reset match for tournament %d: %w", gf.TournamentID, err)
	}
	p.matches[reset.ID] = reset
	p.s.logger.InfoContext(p.ctx, "bracket reset match created", slog.Int("tournament_id", gf.TournamentID), slog.Int("match_id", reset.ID))
	return nil
}

func (p *progression) setChampion(championID *int) error {
	current := p.tournament.ChampionID
	if (current == nil && championID == nil) || (current != nil && championID != nil && *current == *championID) {
		return nil
	}
	if err := p.s.tournamentRepo.UpdateChampion(p.ctx, p.exec, p.tournament.ID, championID); err != nil {
		return fmt.Errorf("failed to update champion of tournament %d: %w", p.tournament.ID, err)
	}
	p.tournament.ChampionID = championID
	if championID != nil {
		p.s.logger.InfoContext(p.ctx, "tournament champion decided", slog.Int("tournament_id", p.tournament.ID), slog.Int("champion_id", *championID))
	}
	return nil
}

func (p *progression) resetMatch() *models.Match {
	for _, m := range p.matches {
		if m.IsReset {
			return m
		}
	}
	return nil
}

func (p *progression) hasSide(side models.BracketSide) bool {
	for _, m := range p.matches {
		if m.Side == side {
			return true
		}
	}
	return false
}

func (p *progression) allMatches() []*models.Match {
	out := make([]*models.Match, 0, len(p.matches))
	for _, m := range p.matches {
		out = append(out, m)
	}
	return out
}

func (p *progression) save(m *models.Match) error {
	if err := p.s.matchRepo.Update(p.ctx, p.exec, m); err != nil {
		return handleRepositoryError(err)
	}
	return nil
}
