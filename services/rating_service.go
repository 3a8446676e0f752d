package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/rating"
	"github.com/Dosada05/esports-platform/repositories"
)

// RatingChange describes the new rating of one player after a match was applied or reverted.
type RatingChange struct {
	UserID    int     `json:"user_id"`
	GameID    int     `json:"game_id"`
	MatchID   int     `json:"match_id"`
	EloRating float64 `json:"elo_rating"`
	EloChange float64 `json:"elo_change"`
}

type RatingService interface {
	// ComputeDelta is the pure "compute ELO delta" procedure; kFactor nil uses the configured one.
	ComputeDelta(winnerRating, loserRating float64, kFactor *float64) (rating.Outcome, error)
	// ApplyMatch applies the decided result of match once. Re-applying the same winner is a no-op,
	// a different winner first compensates the previous application.
	ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, gameID int, match *models.Match) ([]RatingChange, error)
	RevertMatch(ctx context.Context, exec repositories.SQLExecutor, gameID int, match *models.Match) ([]RatingChange, error)

	Leaderboard(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerRanking, error)
	PlayerRankings(ctx context.Context, userID int) ([]*models.PlayerRanking, error)
	History(ctx context.Context, userID int, gameID *int, limit int) ([]*models.MatchEloHistory, error)
}

type ratingService struct {
	rankingRepo repositories.RankingRepository
	historyRepo repositories.EloHistoryRepository
	gameRepo    repositories.GameRepository
	kFactor     float64
	startRating float64
	logger      *slog.Logger
	now         func() time.Time
}

func NewRatingService(
	rankingRepo repositories.RankingRepository,
	historyRepo repositories.EloHistoryRepository,
	gameRepo repositories.GameRepository,
	kFactor float64,
	startRating float64,
	logger *slog.Logger,
) RatingService {
	if kFactor <= 0 {
		kFactor = rating.DefaultKFactor
	}
	if startRating < 0 {
		startRating = rating.DefaultRating
	}
	return &ratingService{
		rankingRepo: rankingRepo,
		historyRepo: historyRepo,
		gameRepo:    gameRepo,
		kFactor:     kFactor,
		startRating: startRating,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *ratingService) ComputeDelta(winnerRating, loserRating float64, kFactor *float64) (rating.Outcome, error) {
	k := s.kFactor
	if kFactor != nil {
		k = *kFactor
	}
	if winnerRating < 0 || loserRating < 0 || math.IsNaN(winnerRating) || math.IsNaN(loserRating) {
		return rating.Outcome{}, fmt.Errorf("%w: ratings must be non-negative numbers", ErrValidationFailed)
	}
	out, err := rating.Compute(winnerRating, loserRating, k)
	if errors.Is(err, rating.ErrInvalidKFactor) {
		return rating.Outcome{}, ErrInvalidKFactor
	}
	return out, err
}

func (s *ratingService) getOrCreate(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (*models.PlayerRanking, error) {
	pr, err := s.rankingRepo.Get(ctx, exec, userID, gameID)
	if err == nil {
		return pr, nil
	}
	if !errors.Is(err, repositories.ErrRankingNotFound) {
		return nil, err
	}

	pr = &models.PlayerRanking{
		UserID:    userID,
		GameID:    gameID,
		EloRating: s.startRating,
		PeakElo:   s.startRating,
	}
	if err := s.rankingRepo.Create(ctx, exec, pr); err != nil {
		if errors.Is(err, repositories.ErrRankingConflict) {
			// создан параллельной транзакцией: повторяем всю операцию
			return nil, repositories.ErrRankingVersionConflict
		}
		return nil, err
	}
	s.logger.DebugContext(ctx, "player ranking created", slog.Int("user_id", userID), slog.Int("game_id", gameID))
	return pr, nil
}

func (s *ratingService) ApplyMatch(ctx context.Context, exec repositories.SQLExecutor, gameID int, match *models.Match) ([]RatingChange, error) {
	if match.WinnerID == nil || match.LoserID() == nil {
		return nil, fmt.Errorf("match %d has no decisive result to rate", match.ID)
	}
	winnerID, loserID := *match.WinnerID, *match.LoserID()

	if match.RatedWinnerID != nil && *match.RatedWinnerID == winnerID {
		return nil, nil
	}

	var changes []RatingChange
	if match.RatedWinnerID != nil {
		reverted, err := s.RevertMatch(ctx, exec, gameID, match)
		if err != nil {
			return nil, err
		}
		changes = append(changes, reverted...)
	}

	winner, err := s.getOrCreate(ctx, exec, winnerID, gameID)
	if err != nil {
		return nil, err
	}
	loser, err := s.getOrCreate(ctx, exec, loserID, gameID)
	if err != nil {
		return nil, err
	}

	out, err := rating.Compute(winner.EloRating, loser.EloRating, s.kFactor)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	winnerStreak, winnerBest := winner.WinStreak, winner.BestWinStreak
	loserStreak, loserBest := loser.WinStreak, loser.BestWinStreak

	winner.EloRating = out.WinnerAfter
	winner.PeakElo = math.Max(winner.PeakElo, winner.EloRating)
	winner.Wins++
	winner.MatchesPlayed++
	winner.WinStreak++
	if winner.WinStreak > winner.BestWinStreak {
		winner.BestWinStreak = winner.WinStreak
	}
	winner.LastMatchAt = &now

	loser.EloRating = out.LoserAfter
	loser.PeakElo = math.Max(loser.PeakElo, loser.EloRating)
	loser.Losses++
	loser.MatchesPlayed++
	loser.WinStreak = 0
	loser.LastMatchAt = &now

	for _, step := range []struct {
		pr         *models.PlayerRanking
		before     float64
		streak     int
		bestStreak int
		won        bool
	}{
		{winner, out.WinnerBefore, winnerStreak, winnerBest, true},
		{loser, out.LoserBefore, loserStreak, loserBest, false},
	} {
		if err := s.rankingRepo.Update(ctx, exec, step.pr); err != nil {
			return nil, err
		}
		entry := &models.MatchEloHistory{
			MatchID:   match.ID,
			UserID:    step.pr.UserID,
			GameID:    gameID,
			EloBefore: step.before,
			EloAfter:  step.pr.EloRating,
			EloChange: step.pr.EloRating - step.before,
			Won:       step.won,

			StreakBefore:     step.streak,
			BestStreakBefore: step.bestStreak,
			RankingVersion:   step.pr.Version,
		}
		if err := s.historyRepo.Create(ctx, exec, entry); err != nil {
			return nil, err
		}
		changes = append(changes, RatingChange{
			UserID: step.pr.UserID, GameID: gameID, MatchID: match.ID,
			EloRating: step.pr.EloRating, EloChange: entry.EloChange,
		})
	}

	match.RatedWinnerID = &winnerID
	s.logger.InfoContext(ctx, "match rating applied",
		slog.Int("match_id", match.ID),
		slog.Int("winner_id", winnerID),
		slog.Int("loser_id", loserID),
		slog.Float64("delta", out.Delta),
	)
	return changes, nil
}

// RevertMatch compensates whatever this match currently contributes to each player's rating.
// Streaks are restored from the applied history row while the ranking is still at the version
// that row produced; otherwise only the winner's current streak is shortened. Peak rating is kept.
func (s *ratingService) RevertMatch(ctx context.Context, exec repositories.SQLExecutor, gameID int, match *models.Match) ([]RatingChange, error) {
	if match.RatedWinnerID == nil {
		return nil, nil
	}
	ratedWinner := *match.RatedWinnerID

	entries, err := s.historyRepo.ListByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, err
	}
	var users []int
	net := make(map[int]float64)
	applied := make(map[int]*models.MatchEloHistory)
	for _, e := range entries {
		if _, seen := net[e.UserID]; !seen {
			users = append(users, e.UserID)
		}
		net[e.UserID] += e.EloChange
		if !e.Compensation {
			applied[e.UserID] = e
		}
	}

	var changes []RatingChange
	for _, userID := range users {
		pr, err := s.rankingRepo.Get(ctx, exec, userID, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ranking of user %d to revert match %d: %w", userID, match.ID, err)
		}
		before := pr.EloRating
		streak, bestStreak := pr.WinStreak, pr.BestWinStreak
		pr.EloRating = math.Max(0, before-net[userID])
		won := userID == ratedWinner
		if won {
			pr.Wins = max(0, pr.Wins-1)
		} else {
			pr.Losses = max(0, pr.Losses-1)
		}
		pr.MatchesPlayed = max(0, pr.MatchesPlayed-1)

		if last, ok := applied[userID]; ok && last.RankingVersion == pr.Version {
			pr.WinStreak = last.StreakBefore
			pr.BestWinStreak = last.BestStreakBefore
		} else if won {
			// после этого матча игрок уже играл: серию до матча не восстановить
			pr.WinStreak = max(0, pr.WinStreak-1)
		}

		if err := s.rankingRepo.Update(ctx, exec, pr); err != nil {
			return nil, err
		}
		entry := &models.MatchEloHistory{
			MatchID:      match.ID,
			UserID:       userID,
			GameID:       gameID,
			EloBefore:    before,
			EloAfter:     pr.EloRating,
			EloChange:    pr.EloRating - before,
			Won:          won,
			Compensation: true,

			StreakBefore:     streak,
			BestStreakBefore: bestStreak,
			RankingVersion:   pr.Version,
		}
		if err := s.historyRepo.Create(ctx, exec, entry); err != nil {
			return nil, err
		}
		changes = append(changes, RatingChange{
			UserID: userID, GameID: gameID, MatchID: match.ID,
			EloRating: pr.EloRating, EloChange: entry.EloChange,
		})
	}

	match.RatedWinnerID = nil
	s.logger.InfoContext(ctx, "match rating reverted", slog.Int("match_id", match.ID), slog.Int("previous_winner_id", ratedWinner))
	return changes, nil
}

func (s *ratingService) Leaderboard(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerRanking, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, handleRepositoryError(err)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.rankingRepo.ListByGame(ctx, gameID, limit, offset)
}

func (s *ratingService) PlayerRankings(ctx context.Context, userID int) ([]*models.PlayerRanking, error) {
	return s.rankingRepo.ListByUser(ctx, userID)
}

func (s *ratingService) History(ctx context.Context, userID int, gameID *int, limit int) ([]*models.MatchEloHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.historyRepo.ListByUser(ctx, userID, gameID, limit)
}
