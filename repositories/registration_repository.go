package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: user or team already has an active registration for this tournament")
	ErrRegistrationTeamInvalid       = errors.New("registration team conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
	ErrRegistrationTypeViolation     = errors.New("registration type violation: either user_id or team_id must be set, but not both")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	// ListByTournament orders by seed (unseeded last), then by creation time.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	// CountActive counts pending and confirmed registrations.
	CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	FindActiveByUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Registration, error)
	FindActiveByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Registration, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error
	UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationColumns = `id, tournament_id, user_id, team_id, status, seed, created_at, updated_at`

func scanRegistration(row rowScanner) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamID, &reg.Status, &reg.Seed, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO tournament_registrations (tournament_id, user_id, team_id, status, seed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		reg.TournamentID,
		reg.UserID,
		reg.TeamID,
		reg.Status,
		reg.Seed,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				if pqErr.Constraint == "uq_registrations_active_user" ||
					pqErr.Constraint == "uq_registrations_active_team" {
					return ErrRegistrationConflict
				}
			case pqForeignKeyViolation:
				switch pqErr.Constraint {
				case "tournament_registrations_team_id_fkey":
					return ErrRegistrationTeamInvalid
				case "tournament_registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				}
			case pqCheckViolation:
				if pqErr.Constraint == "chk_registration_type" {
					return ErrRegistrationTypeViolation
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM tournament_registrations WHERE id = $1`
	reg, err := scanRegistration(pickExecutor(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration %d: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM tournament_registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if statusFilter != nil {
		query += ` AND status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY seed ASC NULLS LAST, created_at ASC, id ASC`

	rows, err := pickExecutor(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		reg, scanErr := scanRegistration(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", scanErr)
		}
		regs = append(regs, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) CountActive(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM tournament_registrations WHERE tournament_id = $1 AND status IN ($2, $3)`
	var count int
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		tournamentID, models.RegistrationPending, models.RegistrationConfirmed,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) FindActiveByUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.Registration, error) {
	return r.findActive(ctx, exec, "user_id", tournamentID, userID)
}

func (r *postgresRegistrationRepository) FindActiveByTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) (*models.Registration, error) {
	return r.findActive(ctx, exec, "team_id", tournamentID, teamID)
}

func (r *postgresRegistrationRepository) findActive(ctx context.Context, exec SQLExecutor, column string, tournamentID, id int) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + `
		FROM tournament_registrations
		WHERE tournament_id = $1 AND ` + column + ` = $2 AND status IN ($3, $4)
		LIMIT 1`
	reg, err := scanRegistration(pickExecutor(exec, r.db).QueryRowContext(ctx, query,
		tournamentID, id, models.RegistrationPending, models.RegistrationConfirmed,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration by %s: %w", column, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RegistrationStatus) error {
	query := `UPDATE tournament_registrations SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrRegistrationConflict
		}
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, id int, seed *int) error {
	query := `UPDATE tournament_registrations SET seed = $1, updated_at = NOW() WHERE id = $2`
	result, err := pickExecutor(exec, r.db).ExecContext(ctx, query, seed, id)
	if err != nil {
		return fmt.Errorf("failed to update registration seed: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
