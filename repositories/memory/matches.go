package memory

import (
	"context"
	"sort"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type matchRepo Store

func (r *matchRepo) Create(ctx context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.matchCreateErr != nil {
		if s.matchCreateFailAfter == 0 {
			err := s.matchCreateErr
			s.matchCreateErr = nil
			return err
		}
		s.matchCreateFailAfter--
	}
	if _, ok := s.data.tournaments[m.TournamentID]; !ok {
		return repositories.ErrMatchTournamentInvalid
	}
	for _, other := range s.data.matches {
		if other.TournamentID == m.TournamentID && other.BracketMatchUID == m.BracketMatchUID {
			return repositories.ErrMatchUIDConflict
		}
	}

	m.ID = s.id()
	m.CreatedAt = s.now()
	m.UpdatedAt = m.CreatedAt
	s.data.matches[m.ID] = *m
	return nil
}

func (r *matchRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.data.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return &m, nil
}

func (r *matchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *matchRepo) ListByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Match, 0)
	for _, m := range s.data.matches {
		if m.TournamentID == tournamentID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.MatchNumber != b.MatchNumber {
			return a.MatchNumber < b.MatchNumber
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *matchRepo) CountByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.data.matches {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *matchRepo) Update(ctx context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.Participant1ID = m.Participant1ID
	stored.Participant2ID = m.Participant2ID
	stored.Score1 = m.Score1
	stored.Score2 = m.Score2
	stored.WinnerID = m.WinnerID
	stored.Status = m.Status
	stored.RatedWinnerID = m.RatedWinnerID
	stored.ScheduledAt = m.ScheduledAt
	stored.Notes = m.Notes
	stored.CompletedAt = m.CompletedAt
	stored.UpdatedAt = s.now()
	m.UpdatedAt = stored.UpdatedAt
	s.data.matches[m.ID] = stored
	return nil
}

func (r *matchRepo) UpdateLinks(ctx context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.NextMatchID = m.NextMatchID
	stored.NextSlot = m.NextSlot
	stored.LoserNextMatchID = m.LoserNextMatchID
	stored.LoserNextSlot = m.LoserNextSlot
	s.data.matches[m.ID] = stored
	return nil
}
