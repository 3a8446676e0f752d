package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

// EloHistoryRepository is append-only.
type EloHistoryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, entry *models.MatchEloHistory) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchEloHistory, error)
	// ListByUser returns newest first; gameID nil means every game.
	ListByUser(ctx context.Context, userID int, gameID *int, limit int) ([]*models.MatchEloHistory, error)
}

type postgresEloHistoryRepository struct {
	db *sql.DB
}

func NewPostgresEloHistoryRepository(db *sql.DB) EloHistoryRepository {
	return &postgresEloHistoryRepository{db: db}
}

const eloHistoryColumns = `
	id, match_id, user_id, game_id, elo_before, elo_after, elo_change, won, compensation,
	streak_before, best_streak_before, ranking_version, created_at`

func (r *postgresEloHistoryRepository) Create(ctx context.Context, exec SQLExecutor, h *models.MatchEloHistory) error {
	query := `
		INSERT INTO match_elo_history (
			match_id, user_id, game_id, elo_before, elo_after, elo_change, won, compensation,
			streak_before, best_streak_before, ranking_version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		h.MatchID, h.UserID, h.GameID, h.EloBefore, h.EloAfter, h.EloChange, h.Won, h.Compensation,
		h.StreakBefore, h.BestStreakBefore, h.RankingVersion,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append elo history for match %d: %w", h.MatchID, err)
	}
	return nil
}

func (r *postgresEloHistoryRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchEloHistory, error) {
	query := `SELECT ` + eloHistoryColumns + ` FROM match_elo_history WHERE match_id = $1 ORDER BY id ASC`
	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elo history for match %d: %w", matchID, err)
	}
	return scanEloHistoryRows(rows)
}

func (r *postgresEloHistoryRepository) ListByUser(ctx context.Context, userID int, gameID *int, limit int) ([]*models.MatchEloHistory, error) {
	query := `SELECT ` + eloHistoryColumns + ` FROM match_elo_history WHERE user_id = $1`
	args := []interface{}{userID}
	if gameID != nil {
		query += ` AND game_id = $2`
		args = append(args, *gameID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list elo history for user %d: %w", userID, err)
	}
	return scanEloHistoryRows(rows)
}

func scanEloHistoryRows(rows *sql.Rows) ([]*models.MatchEloHistory, error) {
	defer rows.Close()

	entries := make([]*models.MatchEloHistory, 0)
	for rows.Next() {
		h := &models.MatchEloHistory{}
		if err := rows.Scan(
			&h.ID, &h.MatchID, &h.UserID, &h.GameID, &h.EloBefore, &h.EloAfter, &h.EloChange, &h.Won, &h.Compensation,
			&h.StreakBefore, &h.BestStreakBefore, &h.RankingVersion, &h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan elo history row: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
