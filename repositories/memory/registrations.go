package memory

import (
	"context"
	"sort"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type registrationRepo Store

func (r *registrationRepo) Create(ctx context.Context, _ repositories.SQLExecutor, reg *models.Registration) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if (reg.UserID == nil) == (reg.TeamID == nil) {
		return repositories.ErrRegistrationTypeViolation
	}
	if _, ok := s.data.tournaments[reg.TournamentID]; !ok {
		return repositories.ErrRegistrationTournamentInvalid
	}
	if reg.TeamID != nil {
		if _, ok := s.data.teams[*reg.TeamID]; !ok {
			return repositories.ErrRegistrationTeamInvalid
		}
	}
	if reg.Status.Active() && s.activeConflict(reg, 0) {
		return repositories.ErrRegistrationConflict
	}

	reg.ID = s.id()
	reg.CreatedAt = s.now()
	reg.UpdatedAt = reg.CreatedAt
	s.data.registrations[reg.ID] = *reg
	return nil
}

// activeConflict emulates the partial unique indexes on active registrations.
func (s *Store) activeConflict(reg *models.Registration, skipID int) bool {
	for id, other := range s.data.registrations {
		if id == skipID || other.TournamentID != reg.TournamentID || !other.Status.Active() {
			continue
		}
		if reg.UserID != nil && other.UserID != nil && *reg.UserID == *other.UserID {
			return true
		}
		if reg.TeamID != nil && other.TeamID != nil && *reg.TeamID == *other.TeamID {
			return true
		}
	}
	return false
}

func (r *registrationRepo) GetByID(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Registration, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.data.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	return &reg, nil
}

func (r *registrationRepo) ListByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Registration, 0)
	for _, reg := range s.data.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		reg := reg
		out = append(out, &reg)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Seed != nil && b.Seed == nil:
			return true
		case a.Seed == nil && b.Seed != nil:
			return false
		case a.Seed != nil && b.Seed != nil && *a.Seed != *b.Seed:
			return *a.Seed < *b.Seed
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *registrationRepo) CountActive(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, reg := range s.data.registrations {
		if reg.TournamentID == tournamentID && reg.Status.Active() {
			count++
		}
	}
	return count, nil
}

func (r *registrationRepo) FindActiveByUser(ctx context.Context, _ repositories.SQLExecutor, tournamentID, userID int) (*models.Registration, error) {
	return r.findActive(tournamentID, func(reg models.Registration) bool {
		return reg.UserID != nil && *reg.UserID == userID
	})
}

func (r *registrationRepo) FindActiveByTeam(ctx context.Context, _ repositories.SQLExecutor, tournamentID, teamID int) (*models.Registration, error) {
	return r.findActive(tournamentID, func(reg models.Registration) bool {
		return reg.TeamID != nil && *reg.TeamID == teamID
	})
}

func (r *registrationRepo) findActive(tournamentID int, match func(models.Registration) bool) (*models.Registration, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.data.registrations {
		if reg.TournamentID == tournamentID && reg.Status.Active() && match(reg) {
			return &reg, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *registrationRepo) UpdateStatus(ctx context.Context, _ repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.data.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	if status.Active() && !reg.Status.Active() && s.activeConflict(&reg, id) {
		return repositories.ErrRegistrationConflict
	}
	reg.Status = status
	reg.UpdatedAt = s.now()
	s.data.registrations[id] = reg
	return nil
}

func (r *registrationRepo) UpdateSeed(ctx context.Context, _ repositories.SQLExecutor, id int, seed *int) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.data.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Seed = seed
	reg.UpdatedAt = s.now()
	s.data.registrations[id] = reg
	return nil
}
