package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var ErrTeamNotFound = errors.New("team not found")

// TeamRepository reads teams; rosters are managed outside this service.
type TeamRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT id, name, captain_id, created_at FROM teams WHERE id = $1`

	var team models.Team
	err := pickExecutor(exec, r.db).QueryRowContext(ctx, query, id).Scan(&team.ID, &team.Name, &team.CaptainID, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	return &team, nil
}
