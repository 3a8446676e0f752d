package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories/memory"
	"github.com/Dosada05/esports-platform/storage"
	"github.com/stretchr/testify/require"
)

const testCDN = "https://cdn.example.com"

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	publisher *events.MemoryPublisher
	uploader  *storage.MemoryUploader

	tournaments   TournamentService
	registrations RegistrationService
	brackets      BracketService
	matches       MatchService
	ratings       RatingService
	games         GameService

	game      *models.Game
	organizer models.Actor
	admin     models.Actor
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	publisher := events.NewMemoryPublisher()
	uploader := storage.NewMemoryUploader(testCDN)
	logger := newTestLogger()

	bracketSvc := NewBracketService(store.Transactor(), store.Tournaments(), store.Registrations(), store.Matches(), logger)
	ratingSvc := NewRatingService(store.Rankings(), store.EloHistory(), store.Games(), 32, 1000, logger)

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     store,
		publisher: publisher,
		uploader:  uploader,
		brackets:  bracketSvc,
		ratings:   ratingSvc,
		games:     NewGameService(store.Games()),
		organizer: models.Actor{UserID: 500, Roles: []models.UserRole{models.RoleOrganizer}},
		admin:     models.Actor{UserID: 900, Roles: []models.UserRole{models.RoleAdmin}},
	}
	f.tournaments = NewTournamentService(store.Transactor(), store.Tournaments(), store.Registrations(), store.Matches(), store.Games(), bracketSvc, uploader, publisher, logger)
	f.registrations = NewRegistrationService(store.Transactor(), store.Tournaments(), store.Registrations(), store.Matches(), store.Teams(), logger)
	f.matches = NewMatchService(store.Transactor(), store.Tournaments(), store.Registrations(), store.Matches(), ratingSvc, publisher, logger)

	game := &models.Game{Name: "Dota 2", Slug: "dota-2"}
	require.NoError(t, store.Games().Create(f.ctx, game))
	f.game = game
	return f
}

func player(id int) models.Actor {
	return models.Actor{UserID: id, Roles: []models.UserRole{models.RolePlayer}}
}

func (f *fixture) tournamentInput(bracket models.BracketType, maxParticipants int) CreateTournamentInput {
	return CreateTournamentInput{
		Name:            "Spring Cup",
		GameID:          f.game.ID,
		BracketType:     bracket,
		MaxParticipants: maxParticipants,
		StartDate:       time.Now().Add(7 * 24 * time.Hour),
	}
}

func (f *fixture) createTournament(bracket models.BracketType, maxParticipants int, mutate ...func(*CreateTournamentInput)) *models.Tournament {
	f.t.Helper()
	input := f.tournamentInput(bracket, maxParticipants)
	for _, m := range mutate {
		m(&input)
	}
	tournament, err := f.tournaments.Create(f.ctx, f.organizer, input)
	require.NoError(f.t, err)
	return tournament
}

func (f *fixture) setStatus(tournamentID int, status models.TournamentStatus) {
	f.t.Helper()
	_, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournamentID, status)
	require.NoError(f.t, err)
}

// registerConfirmed registers solo players and confirms them in the given order.
func (f *fixture) registerConfirmed(tournamentID int, players ...int) []*models.Registration {
	f.t.Helper()
	regs := make([]*models.Registration, 0, len(players))
	for _, id := range players {
		reg, err := f.registrations.Register(f.ctx, player(id), tournamentID, nil)
		require.NoError(f.t, err)
		reg, err = f.registrations.UpdateStatus(f.ctx, f.organizer, reg.ID, models.RegistrationConfirmed)
		require.NoError(f.t, err)
		regs = append(regs, reg)
	}
	return regs
}

// openTournament creates a solo tournament in registration with confirmed players.
func (f *fixture) openTournament(bracket models.BracketType, players ...int) *models.Tournament {
	f.t.Helper()
	tournament := f.createTournament(bracket, max(8, len(players)))
	f.setStatus(tournament.ID, models.StatusRegistration)
	f.registerConfirmed(tournament.ID, players...)
	return tournament
}

func (f *fixture) startTournament(bracket models.BracketType, players ...int) *models.Tournament {
	f.t.Helper()
	tournament := f.openTournament(bracket, players...)
	f.setStatus(tournament.ID, models.StatusLive)
	return tournament
}

func (f *fixture) tournament(id int) *models.Tournament {
	f.t.Helper()
	tournament, err := f.store.Tournaments().GetByID(f.ctx, nil, id)
	require.NoError(f.t, err)
	return tournament
}

func (f *fixture) allMatches(tournamentID int) []*models.Match {
	f.t.Helper()
	matches, err := f.store.Matches().ListByTournament(f.ctx, nil, tournamentID)
	require.NoError(f.t, err)
	return matches
}

func (f *fixture) match(tournamentID int, uid string) *models.Match {
	f.t.Helper()
	for _, m := range f.allMatches(tournamentID) {
		if m.BracketMatchUID == uid {
			return m
		}
	}
	f.t.Fatalf("match %s not found in tournament %d", uid, tournamentID)
	return nil
}

func scoresFor(m *models.Match, winner int) (*int, *int) {
	if m.Participant1ID != nil && *m.Participant1ID == winner {
		return intPtr(2), intPtr(1)
	}
	return intPtr(1), intPtr(2)
}

// win records winner as the result of the match with the given bracket uid.
func (f *fixture) win(tournamentID int, uid string, winner int) *models.Match {
	f.t.Helper()
	m := f.match(tournamentID, uid)
	s1, s2 := scoresFor(m, winner)
	updated, err := f.matches.RecordResult(f.ctx, f.organizer, m.ID, RecordResultInput{WinnerID: winner, Score1: s1, Score2: s2})
	require.NoError(f.t, err)
	return updated
}

// playAll records results until no playable match is left; pick chooses the winner.
func (f *fixture) playAll(tournamentID int, pick func(m *models.Match) int) int {
	f.t.Helper()
	played := 0
	for guard := 0; guard < 500; guard++ {
		var next *models.Match
		for _, m := range f.allMatches(tournamentID) {
			if m.Status == models.MatchPending && !m.IsBye && m.Participant1ID != nil && m.Participant2ID != nil {
				next = m
				break
			}
		}
		if next == nil {
			return played
		}
		winner := pick(next)
		s1, s2 := scoresFor(next, winner)
		_, err := f.matches.RecordResult(f.ctx, f.organizer, next.ID, RecordResultInput{WinnerID: winner, Score1: s1, Score2: s2})
		require.NoError(f.t, err)
		played++
	}
	f.t.Fatal("bracket did not finish")
	return played
}

func lowerIDWins(m *models.Match) int {
	if *m.Participant1ID < *m.Participant2ID {
		return *m.Participant1ID
	}
	return *m.Participant2ID
}

func ranking(t *testing.T, f *fixture, userID int) *models.PlayerRanking {
	t.Helper()
	pr, err := f.store.Rankings().Get(f.ctx, nil, userID, f.game.ID)
	require.NoError(t, err)
	return pr
}
