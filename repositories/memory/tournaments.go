package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type tournamentRepo Store

func copyTournament(t models.Tournament) *models.Tournament {
	if t.PrizeDistribution != nil {
		t.PrizeDistribution = append([]models.PrizeShare(nil), t.PrizeDistribution...)
	}
	return &t
}

func (r *tournamentRepo) Create(ctx context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	s := (*Store)(r)
	if err := t.EncodePrizeDistribution(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.games[t.GameID]; !ok {
		return repositories.ErrTournamentInvalidGame
	}
	t.ID = s.id()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.data.tournaments[t.ID] = *copyTournament(*t)
	return nil
}

func (r *tournamentRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return copyTournament(t), nil
}

func (r *tournamentRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *tournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Tournament, 0)
	for _, t := range s.data.tournaments {
		if filter.GameID != nil && t.GameID != *filter.GameID {
			continue
		}
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *copyTournament(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Tournament{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *tournamentRepo) Update(ctx context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	s := (*Store)(r)
	if err := t.EncodePrizeDistribution(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.data.tournaments[t.ID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	stored.Name = t.Name
	stored.Slug = t.Slug
	stored.Description = t.Description
	stored.MaxParticipants = t.MaxParticipants
	stored.TeamSize = t.TeamSize
	stored.PrizePool = t.PrizePool
	stored.PrizeDistributionRaw = t.PrizeDistributionRaw
	stored.PrizeDistribution = t.PrizeDistribution
	stored.StartDate = t.StartDate
	stored.EndDate = t.EndDate
	stored.RegistrationDeadline = t.RegistrationDeadline
	stored.RegistrationClosedAt = t.RegistrationClosedAt
	stored.Rules = t.Rules
	stored.UpdatedAt = s.now()
	t.UpdatedAt = stored.UpdatedAt
	s.data.tournaments[t.ID] = *copyTournament(stored)
	return nil
}

func (r *tournamentRepo) mutate(id int, fn func(t *models.Tournament)) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	fn(&t)
	t.UpdatedAt = s.now()
	s.data.tournaments[id] = t
	return nil
}

func (r *tournamentRepo) UpdateStatus(ctx context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.mutate(id, func(t *models.Tournament) { t.Status = status })
}

func (r *tournamentRepo) UpdateBannerKey(ctx context.Context, tournamentID int, bannerKey *string) error {
	return r.mutate(tournamentID, func(t *models.Tournament) { t.BannerKey = bannerKey })
}

func (r *tournamentRepo) UpdateChampion(ctx context.Context, _ repositories.SQLExecutor, tournamentID int, championID *int) error {
	return r.mutate(tournamentID, func(t *models.Tournament) { t.ChampionID = championID })
}

func (r *tournamentRepo) MarkRegistrationClosed(ctx context.Context, _ repositories.SQLExecutor, id int, closedAt time.Time) error {
	return r.mutate(id, func(t *models.Tournament) { t.RegistrationClosedAt = &closedAt })
}

func (r *tournamentRepo) ListRegistrationExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Tournament
	for _, t := range s.data.tournaments {
		if t.Status == models.StatusRegistration && t.RegistrationDeadline != nil && !t.RegistrationDeadline.After(now) &&
			t.RegistrationClosedAt == nil {
			out = append(out, copyTournament(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
