package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchUIDConflict       = errors.New("bracket match uid already exists for this tournament")
	ErrMatchInvalidData       = errors.New("match violates a table constraint")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetForUpdate locks the match row until the transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	// Update writes every mutable column of the match.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, match *models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `
	id, tournament_id, bracket_match_uid, side, round, match_number,
	participant1_id, participant2_id, score1, score2, winner_id, status, is_bye, is_reset,
	next_match_id, next_slot, loser_next_match_id, loser_next_slot, rated_winner_id,
	scheduled_at, notes, completed_at, created_at, updated_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.BracketMatchUID, &m.Side, &m.Round, &m.MatchNumber,
		&m.Participant1ID, &m.Participant2ID, &m.Score1, &m.Score2, &m.WinnerID, &m.Status, &m.IsBye, &m.IsReset,
		&m.NextMatchID, &m.NextSlot, &m.LoserNextMatchID, &m.LoserNextSlot, &m.RatedWinnerID,
		&m.ScheduledAt, &m.Notes, &m.CompletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO tournament_matches
			(tournament_id, bracket_match_uid, side, round, match_number,
			 participant1_id, participant2_id, score1, score2, winner_id, status, is_bye, is_reset,
			 next_match_id, next_slot, loser_next_match_id, loser_next_slot, scheduled_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		m.TournamentID, m.BracketMatchUID, m.Side, m.Round, m.MatchNumber,
		m.Participant1ID, m.Participant2ID, m.Score1, m.Score2, m.WinnerID, m.Status, m.IsBye, m.IsReset,
		m.NextMatchID, m.NextSlot, m.LoserNextMatchID, m.LoserNextSlot, m.ScheduledAt, m.CompletedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, `SELECT `+matchColumns+` FROM tournament_matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.get(ctx, exec, `SELECT `+matchColumns+` FROM tournament_matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Match, error) {
	m, err := scanMatch(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY round ASC, match_number ASC, id ASC`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	var count int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_matches WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE tournament_matches SET
			participant1_id = $1,
			participant2_id = $2,
			score1 = $3,
			score2 = $4,
			winner_id = $5,
			status = $6,
			rated_winner_id = $7,
			scheduled_at = $8,
			notes = $9,
			completed_at = $10,
			updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		m.Participant1ID, m.Participant2ID, m.Score1, m.Score2, m.WinnerID, m.Status,
		m.RatedWinnerID, m.ScheduledAt, m.Notes, m.CompletedAt,
		m.ID,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMatchNotFound
	}
	return r.handleMatchError(err)
}

// UpdateLinks stores the graph edges resolved after all rows of a bracket exist.
func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE tournament_matches SET
			next_match_id = $1, next_slot = $2, loser_next_match_id = $3, loser_next_slot = $4
		WHERE id = $5`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query,
		m.NextMatchID, m.NextSlot, m.LoserNextMatchID, m.LoserNextSlot, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update links of match %d: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == "uq_matches_tournament_uid" {
				return ErrMatchUIDConflict
			}
		case pqForeignKeyViolation:
			if pqErr.Constraint == "tournament_matches_tournament_id_fkey" {
				return ErrMatchTournamentInvalid
			}
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrMatchInvalidData, pqErr.Constraint)
		}
	}
	return err
}
