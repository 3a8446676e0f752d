package memory

import (
	"context"
	"sort"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type teamRepo Store

func (r *teamRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Team, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, ok := s.data.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	return &team, nil
}

type gameRepo Store

func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.data.games {
		if other.Name == game.Name {
			return repositories.ErrGameNameConflict
		}
	}
	game.ID = s.id()
	s.data.games[game.ID] = *game
	return nil
}

func (r *gameRepo) GetByID(ctx context.Context, id int) (*models.Game, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.data.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	return &game, nil
}

func (r *gameRepo) GetAll(ctx context.Context) ([]models.Game, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]models.Game, 0, len(s.data.games))
	for _, g := range s.data.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
	return games, nil
}
