package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("game name conflict")
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id int) (*models.Game, error)
	GetAll(ctx context.Context) ([]models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `INSERT INTO games (name, slug) VALUES ($1, $2) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, game.Name, game.Slug).Scan(&game.ID)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation {
			return ErrGameNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `SELECT id, name, slug FROM games WHERE id = $1`

	var game models.Game
	err := r.db.QueryRowContext(ctx, query, id).Scan(&game.ID, &game.Name, &game.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (r *postgresGameRepository) GetAll(ctx context.Context) ([]models.Game, error) {
	query := `SELECT id, name, slug FROM games ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		var game models.Game
		if err := rows.Scan(&game.ID, &game.Name, &game.Slug); err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}
