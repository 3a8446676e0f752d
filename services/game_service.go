package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/gosimple/slug"
)

type GameService interface {
	CreateGame(ctx context.Context, actor models.Actor, input CreateGameInput) (*models.Game, error)
	GetGameByID(ctx context.Context, id int) (*models.Game, error)
	GetAllGames(ctx context.Context) ([]models.Game, error)
}

type CreateGameInput struct {
	Name string `json:"name"`
}

type gameService struct {
	gameRepo repositories.GameRepository
}

func NewGameService(gameRepo repositories.GameRepository) GameService {
	return &gameService{
		gameRepo: gameRepo,
	}
}

func (s *gameService) CreateGame(ctx context.Context, actor models.Actor, input CreateGameInput) (*models.Game, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin role required", ErrForbiddenOperation)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrGameNameRequired
	}

	game := &models.Game{
		Name: name,
		Slug: slug.Make(name),
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, handleRepositoryError(err)
	}
	return game, nil
}

func (s *gameService) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return game, nil
}

func (s *gameService) GetAllGames(ctx context.Context) ([]models.Game, error) {
	games, err := s.gameRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}
