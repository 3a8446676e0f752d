package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrTournamentInvalidGame = errors.New("invalid game reference")
	ErrTournamentInvalidData = errors.New("tournament violates a table constraint")
)

type ListTournamentsFilter struct {
	GameID      *int
	OrganizerID *int
	Status      *models.TournamentStatus
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate locks the tournament row until the transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error
	UpdateChampion(ctx context.Context, exec SQLExecutor, tournamentID int, championID *int) error
	// MarkRegistrationClosed records when the deadline job closed registration.
	MarkRegistrationClosed(ctx context.Context, exec SQLExecutor, id int, closedAt time.Time) error
	ListRegistrationExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	id, name, slug, description, game_id, organizer_id, bracket_type, max_participants,
	is_team_based, team_size, prize_pool, prize_distribution, start_date, end_date,
	registration_deadline, registration_closed_at, status, rules, banner_key, champion_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.Description, &t.GameID, &t.OrganizerID, &t.BracketType, &t.MaxParticipants,
		&t.IsTeamBased, &t.TeamSize, &t.PrizePool, &t.PrizeDistributionRaw, &t.StartDate, &t.EndDate,
		&t.RegistrationDeadline, &t.RegistrationClosedAt, &t.Status, &t.Rules, &t.BannerKey, &t.ChampionID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := t.DecodePrizeDistribution(); err != nil {
		return nil, fmt.Errorf("failed to decode prize distribution of tournament %d: %w", t.ID, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if err := t.EncodePrizeDistribution(); err != nil {
		return err
	}
	query := `
		INSERT INTO tournaments (
			name, slug, description, game_id, organizer_id, bracket_type, max_participants,
			is_team_based, team_size, prize_pool, prize_distribution, start_date, end_date,
			registration_deadline, status, rules
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Description, t.GameID, t.OrganizerID, t.BracketType, t.MaxParticipants,
		t.IsTeamBased, t.TeamSize, t.PrizePool, t.PrizeDistributionRaw, t.StartDate, t.EndDate,
		t.RegistrationDeadline, t.Status, t.Rules,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.get(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) get(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Tournament, error) {
	t, err := scanTournament(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.GameID != nil {
		query += fmt.Sprintf(" AND game_id = $%d", argID)
		args = append(args, *filter.GameID)
		argID++
	}
	if filter.OrganizerID != nil {
		query += fmt.Sprintf(" AND organizer_id = $%d", argID)
		args = append(args, *filter.OrganizerID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY start_date DESC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

// Update пишет редактируемые поля; статус, баннер и чемпион меняются отдельными методами.
func (r *postgresTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if err := t.EncodePrizeDistribution(); err != nil {
		return err
	}
	query := `
		UPDATE tournaments SET
			name = $1,
			slug = $2,
			description = $3,
			max_participants = $4,
			team_size = $5,
			prize_pool = $6,
			prize_distribution = $7,
			start_date = $8,
			end_date = $9,
			registration_deadline = $10,
			registration_closed_at = $11,
			rules = $12,
			updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		t.Name, t.Slug, t.Description, t.MaxParticipants, t.TeamSize, t.PrizePool, t.PrizeDistributionRaw,
		t.StartDate, t.EndDate, t.RegistrationDeadline, t.RegistrationClosedAt, t.Rules,
		t.ID,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTournamentNotFound
	}
	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	query := `UPDATE tournaments SET banner_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateChampion(ctx context.Context, exec SQLExecutor, tournamentID int, championID *int) error {
	query := `UPDATE tournaments SET champion_id = $1, updated_at = NOW() WHERE id = $2`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, championID, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update champion for tournament %d: %w", tournamentID, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkRegistrationClosed(ctx context.Context, exec SQLExecutor, id int, closedAt time.Time) error {
	query := `UPDATE tournaments SET registration_closed_at = $1, updated_at = NOW() WHERE id = $2`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, closedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark registration of tournament %d closed: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListRegistrationExpired returns tournaments in registration whose deadline has passed
// and whose closing has not been recorded yet.
func (r *postgresTournamentRepository) ListRegistrationExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND registration_deadline IS NOT NULL AND registration_deadline <= $2
			AND registration_closed_at IS NULL
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, models.StatusRegistration, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments with expired registration: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament with expired registration: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqError(err); ok {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			if pqErr.Constraint == "tournaments_game_id_fkey" {
				return ErrTournamentInvalidGame
			}
		case pqCheckViolation:
			return fmt.Errorf("%w: %s", ErrTournamentInvalidData, pqErr.Constraint)
		}
	}
	return err
}
