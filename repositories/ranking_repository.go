package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrRankingNotFound = errors.New("player ranking not found")
	ErrRankingConflict = errors.New("player ranking already exists for this user and game")
	// ErrRankingVersionConflict means the row changed since it was read.
	ErrRankingVersionConflict = errors.New("player ranking was modified concurrently")
)

type RankingRepository interface {
	Get(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.PlayerRanking, error)
	Create(ctx context.Context, exec SQLExecutor, ranking *models.PlayerRanking) error
	// Update succeeds only if ranking.Version still matches the stored row, then bumps it.
	Update(ctx context.Context, exec SQLExecutor, ranking *models.PlayerRanking) error
	ListByGame(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerRanking, error)
	ListByUser(ctx context.Context, userID int) ([]*models.PlayerRanking, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

const rankingColumns = `
	id, user_id, game_id, elo_rating, peak_elo, wins, losses, matches_played,
	win_streak, best_win_streak, last_match_at, version, created_at, updated_at`

func scanRanking(row rowScanner) (*models.PlayerRanking, error) {
	pr := &models.PlayerRanking{}
	err := row.Scan(
		&pr.ID, &pr.UserID, &pr.GameID, &pr.EloRating, &pr.PeakElo, &pr.Wins, &pr.Losses, &pr.MatchesPlayed,
		&pr.WinStreak, &pr.BestWinStreak, &pr.LastMatchAt, &pr.Version, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *postgresRankingRepository) Get(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.PlayerRanking, error) {
	query := `SELECT ` + rankingColumns + ` FROM player_rankings WHERE user_id = $1 AND game_id = $2`
	pr, err := scanRanking(pickExecutor(exec, r.db).QueryRowContext(ctx, query, userID, gameID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingNotFound
		}
		return nil, fmt.Errorf("failed to get ranking of user %d for game %d: %w", userID, gameID, err)
	}
	return pr, nil
}

func (r *postgresRankingRepository) Create(ctx context.Context, exec SQLExecutor, pr *models.PlayerRanking) error {
	query := `
		INSERT INTO player_rankings
			(user_id, game_id, elo_rating, peak_elo, wins, losses, matches_played, win_streak, best_win_streak, last_match_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at, updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		pr.UserID, pr.GameID, pr.EloRating, pr.PeakElo, pr.Wins, pr.Losses, pr.MatchesPlayed,
		pr.WinStreak, pr.BestWinStreak, pr.LastMatchAt,
	).Scan(&pr.ID, &pr.Version, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrRankingConflict
		}
		return fmt.Errorf("failed to create ranking: %w", err)
	}
	return nil
}

func (r *postgresRankingRepository) Update(ctx context.Context, exec SQLExecutor, pr *models.PlayerRanking) error {
	query := `
		UPDATE player_rankings SET
			elo_rating = $1,
			peak_elo = $2,
			wins = $3,
			losses = $4,
			matches_played = $5,
			win_streak = $6,
			best_win_streak = $7,
			last_match_at = $8,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING version, updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		pr.EloRating, pr.PeakElo, pr.Wins, pr.Losses, pr.MatchesPlayed,
		pr.WinStreak, pr.BestWinStreak, pr.LastMatchAt,
		pr.ID, pr.Version,
	).Scan(&pr.Version, &pr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRankingVersionConflict
		}
		return fmt.Errorf("failed to update ranking %d: %w", pr.ID, err)
	}
	return nil
}

func (r *postgresRankingRepository) ListByGame(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerRanking, error) {
	query := `SELECT ` + rankingColumns + `
		FROM player_rankings
		WHERE game_id = $1
		ORDER BY elo_rating DESC, wins DESC, user_id ASC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, gameID, limit, offset)
}

func (r *postgresRankingRepository) ListByUser(ctx context.Context, userID int) ([]*models.PlayerRanking, error) {
	query := `SELECT ` + rankingColumns + ` FROM player_rankings WHERE user_id = $1 ORDER BY game_id ASC`
	return r.list(ctx, query, userID)
}

func (r *postgresRankingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.PlayerRanking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}
	defer rows.Close()

	rankings := make([]*models.PlayerRanking, 0)
	for rows.Next() {
		pr, scanErr := scanRanking(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", scanErr)
		}
		rankings = append(rankings, pr)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return rankings, nil
}
