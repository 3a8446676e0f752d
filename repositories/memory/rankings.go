package memory

import (
	"context"
	"sort"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type rankingRepo Store

func (r *rankingRepo) Get(ctx context.Context, _ repositories.SQLExecutor, userID, gameID int) (*models.PlayerRanking, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, pr := range s.data.rankings {
		if pr.UserID == userID && pr.GameID == gameID {
			return &pr, nil
		}
	}
	return nil, repositories.ErrRankingNotFound
}

func (r *rankingRepo) Create(ctx context.Context, _ repositories.SQLExecutor, pr *models.PlayerRanking) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.data.rankings {
		if other.UserID == pr.UserID && other.GameID == pr.GameID {
			return repositories.ErrRankingConflict
		}
	}
	pr.ID = s.id()
	pr.Version = 1
	pr.CreatedAt = s.now()
	pr.UpdatedAt = pr.CreatedAt
	s.data.rankings[pr.ID] = *pr
	return nil
}

func (r *rankingRepo) Update(ctx context.Context, _ repositories.SQLExecutor, pr *models.PlayerRanking) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rankingConflicts > 0 {
		s.rankingConflicts--
		return repositories.ErrRankingVersionConflict
	}
	stored, ok := s.data.rankings[pr.ID]
	if !ok || stored.Version != pr.Version {
		return repositories.ErrRankingVersionConflict
	}
	updated := *pr
	updated.UserID = stored.UserID
	updated.GameID = stored.GameID
	updated.CreatedAt = stored.CreatedAt
	updated.Version = stored.Version + 1
	updated.UpdatedAt = s.now()
	s.data.rankings[pr.ID] = updated

	pr.Version = updated.Version
	pr.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *rankingRepo) ListByGame(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerRanking, error) {
	out := r.list(func(pr models.PlayerRanking) bool { return pr.GameID == gameID })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.EloRating != b.EloRating {
			return a.EloRating > b.EloRating
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.UserID < b.UserID
	})
	if offset >= len(out) {
		return []*models.PlayerRanking{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *rankingRepo) ListByUser(ctx context.Context, userID int) ([]*models.PlayerRanking, error) {
	out := r.list(func(pr models.PlayerRanking) bool { return pr.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

func (r *rankingRepo) list(keep func(models.PlayerRanking) bool) []*models.PlayerRanking {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.PlayerRanking, 0)
	for _, pr := range s.data.rankings {
		if keep(pr) {
			pr := pr
			out = append(out, &pr)
		}
	}
	return out
}

type eloHistoryRepo Store

func (r *eloHistoryRepo) Create(ctx context.Context, _ repositories.SQLExecutor, h *models.MatchEloHistory) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	h.ID = s.id()
	h.CreatedAt = s.now()
	s.data.history = append(s.data.history, *h)
	return nil
}

func (r *eloHistoryRepo) ListByMatch(ctx context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.MatchEloHistory, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MatchEloHistory, 0)
	for _, h := range s.data.history {
		if h.MatchID == matchID {
			h := h
			out = append(out, &h)
		}
	}
	return out, nil
}

func (r *eloHistoryRepo) ListByUser(ctx context.Context, userID int, gameID *int, limit int) ([]*models.MatchEloHistory, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.MatchEloHistory, 0)
	for i := len(s.data.history) - 1; i >= 0; i-- {
		h := s.data.history[i]
		if h.UserID != userID || (gameID != nil && h.GameID != *gameID) {
			continue
		}
		out = append(out, &h)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
