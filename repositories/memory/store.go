// Package memory keeps every repository in process memory. It backs the service and
// handler tests and mirrors the ordering and error contract of the postgres repositories.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	now  func() time.Time

	data state

	matchCreateFailAfter int
	matchCreateErr       error
	rankingConflicts     int
}

type state struct {
	nextID        int
	tournaments   map[int]models.Tournament
	registrations map[int]models.Registration
	matches       map[int]models.Match
	teams         map[int]models.Team
	games         map[int]models.Game
	rankings      map[int]models.PlayerRanking
	history       []models.MatchEloHistory
}

func NewStore() *Store {
	return &Store{
		now: time.Now,
		data: state{
			tournaments:   make(map[int]models.Tournament),
			registrations: make(map[int]models.Registration),
			matches:       make(map[int]models.Match),
			teams:         make(map[int]models.Team),
			games:         make(map[int]models.Game),
			rankings:      make(map[int]models.PlayerRanking),
		},
	}
}

// SetClock replaces the clock used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddTeam stores a team as-is, assigning an id when zero.
func (s *Store) AddTeam(team models.Team) models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == 0 {
		team.ID = s.id()
	}
	team.CreatedAt = s.now()
	s.data.teams[team.ID] = team
	return team
}

// FailMatchCreateAfter makes the (n+1)-th next match insert fail with err.
func (s *Store) FailMatchCreateAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchCreateFailAfter = n
	s.matchCreateErr = err
}

// InjectRankingConflicts makes the next n ranking updates fail with a version conflict.
func (s *Store) InjectRankingConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankingConflicts = n
}

func (s *Store) Transactor() repositories.Transactor {
	return (*transactor)(s)
}

func (s *Store) Tournaments() repositories.TournamentRepository {
	return (*tournamentRepo)(s)
}

func (s *Store) Registrations() repositories.RegistrationRepository {
	return (*registrationRepo)(s)
}

func (s *Store) Matches() repositories.MatchRepository {
	return (*matchRepo)(s)
}

func (s *Store) Teams() repositories.TeamRepository {
	return (*teamRepo)(s)
}

func (s *Store) Games() repositories.GameRepository {
	return (*gameRepo)(s)
}

func (s *Store) Rankings() repositories.RankingRepository {
	return (*rankingRepo)(s)
}

func (s *Store) EloHistory() repositories.EloHistoryRepository {
	return (*eloHistoryRepo)(s)
}

func (s *Store) id() int {
	s.data.nextID++
	return s.data.nextID
}

func (st state) clone() state {
	c := state{
		nextID:        st.nextID,
		tournaments:   make(map[int]models.Tournament, len(st.tournaments)),
		registrations: make(map[int]models.Registration, len(st.registrations)),
		matches:       make(map[int]models.Match, len(st.matches)),
		teams:         make(map[int]models.Team, len(st.teams)),
		games:         make(map[int]models.Game, len(st.games)),
		rankings:      make(map[int]models.PlayerRanking, len(st.rankings)),
		history:       append([]models.MatchEloHistory(nil), st.history...),
	}
	for k, v := range st.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range st.registrations {
		c.registrations[k] = v
	}
	for k, v := range st.matches {
		c.matches[k] = v
	}
	for k, v := range st.teams {
		c.teams[k] = v
	}
	for k, v := range st.games {
		c.games[k] = v
	}
	for k, v := range st.rankings {
		c.rankings[k] = v
	}
	return c
}

type transactor Store

// WithinTx serializes transactions and restores the previous state when fn fails.
func (t *transactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	s := (*Store)(t)
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}
