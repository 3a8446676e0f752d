package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/events"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTournamentService_Create(t *testing.T) {
	f := newFixture(t)

	tournament := f.createTournament(models.BracketSingleElimination, 16, func(in *CreateTournamentInput) {
		in.Name = "  Spring Cup 2025 "
		in.PrizePool = 1000
		in.PrizeDistribution = []models.PrizeShare{{Place: 1, Percent: 60}, {Place: 2, Percent: 40}}
	})

	assert.NotZero(t, tournament.ID)
	assert.Equal(t, "Spring Cup 2025", tournament.Name)
	assert.Equal(t, "spring-cup-2025", tournament.Slug)
	assert.Equal(t, models.StatusDraft, tournament.Status)
	assert.Equal(t, f.organizer.UserID, tournament.OrganizerID)
	assert.Equal(t, 1, tournament.TeamSize)

	stored := f.tournament(tournament.ID)
	require.NoError(t, stored.DecodePrizeDistribution())
	assert.Len(t, stored.PrizeDistribution, 2)
}

func TestTournamentService_CreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(48 * time.Hour)
	before := start.Add(-time.Hour)
	after := start.Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(in *CreateTournamentInput)
		wantErr error
	}{
		{"empty name", func(in *CreateTournamentInput) { in.Name = "   " }, ErrTournamentNameRequired},
		{"capacity below two", func(in *CreateTournamentInput) { in.MaxParticipants = 1 }, ErrTournamentInvalidCapacity},
		{"unknown bracket", func(in *CreateTournamentInput) { in.BracketType = "swiss" }, ErrTournamentInvalidBracket},
		{"missing start", func(in *CreateTournamentInput) { in.StartDate = time.Time{} }, ErrTournamentDatesRequired},
		{"end before start", func(in *CreateTournamentInput) { in.EndDate = &before }, ErrTournamentInvalidDateRange},
		{"end equals start", func(in *CreateTournamentInput) { in.EndDate = &start }, ErrTournamentInvalidDateRange},
		{"deadline after start", func(in *CreateTournamentInput) { in.RegistrationDeadline = &after }, ErrTournamentInvalidDeadline},
		{"team size zero", func(in *CreateTournamentInput) { in.IsTeamBased = true; in.TeamSize = 0 }, ErrTournamentInvalidTeamSize},
		{"negative prize pool", func(in *CreateTournamentInput) { in.PrizePool = -1 }, ErrTournamentInvalidPrize},
		{"prizes over 100 percent", func(in *CreateTournamentInput) {
			in.PrizeDistribution = []models.PrizeShare{{Place: 1, Percent: 60}, {Place: 2, Percent: 50}}
		}, ErrTournamentInvalidPrize},
		{"duplicate prize place", func(in *CreateTournamentInput) {
			in.PrizeDistribution = []models.PrizeShare{{Place: 1, Percent: 10}, {Place: 1, Percent: 10}}
		}, ErrTournamentInvalidPrize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := f.tournamentInput(models.BracketSingleElimination, 8)
			input.StartDate = start
			tt.mutate(&input)

			_, err := f.tournaments.Create(f.ctx, f.organizer, input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}

	list, err := f.tournaments.List(f.ctx, repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTournamentService_CreateAuthorization(t *testing.T) {
	f := newFixture(t)

	_, err := f.tournaments.Create(f.ctx, player(1), f.tournamentInput(models.BracketRoundRobin, 4))
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = f.tournaments.Create(f.ctx, f.admin, f.tournamentInput(models.BracketRoundRobin, 4))
	assert.NoError(t, err)

	input := f.tournamentInput(models.BracketRoundRobin, 4)
	input.GameID = 4242
	_, err = f.tournaments.Create(f.ctx, f.organizer, input)
	assert.ErrorIs(t, err, ErrGameNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTournamentService_StatusMachineClosure(t *testing.T) {
	f := newFixture(t)
	all := []models.TournamentStatus{
		models.StatusDraft,
		models.StatusRegistration,
		models.StatusLive,
		models.StatusCompleted,
		models.StatusCancelled,
	}

	for _, from := range all {
		for _, to := range all {
			if from.CanTransitionTo(to) {
				continue
			}
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				tournament := f.createTournament(models.BracketSingleElimination, 4)
				require.NoError(t, f.store.Tournaments().UpdateStatus(f.ctx, nil, tournament.ID, from))

				_, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, to)
				assert.ErrorIs(t, err, ErrStateConflict)
				assert.Equal(t, from, f.tournament(tournament.ID).Status)
			})
		}
	}
}

func TestTournamentService_CompletedCannotReopenRegistration(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketSingleElimination, 1, 2)
	f.win(tournament.ID, "W-R1M1", 1)
	f.setStatus(tournament.ID, models.StatusCompleted)

	_, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusRegistration)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
	assert.ErrorIs(t, err, ErrStateConflict)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestTournamentService_ChangeStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)

	_, err := f.tournaments.ChangeStatus(f.ctx, player(7), tournament.ID, models.StatusRegistration)
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := f.tournaments.ChangeStatus(f.ctx, f.admin, tournament.ID, models.StatusRegistration)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRegistration, updated.Status)

	f.setStatus(tournament.ID, models.StatusDraft)
	f.setStatus(tournament.ID, models.StatusRegistration)
	f.setStatus(tournament.ID, models.StatusCancelled)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusDraft)
	assert.ErrorIs(t, err, ErrStateConflict)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, "paused")
	assert.ErrorIs(t, err, ErrTournamentInvalidStatus)

	changes := f.publisher.OfType(events.TournamentStatusChanged)
	require.Len(t, changes, 4)
	last := changes[3].Payload.(events.TournamentStatusChangedPayload)
	assert.Equal(t, models.StatusRegistration, last.From)
	assert.Equal(t, models.StatusCancelled, last.To)
}

func TestTournamentService_GoLiveRequiresTwoConfirmed(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1)
	_, err := f.registrations.Register(f.ctx, player(2), tournament.ID, nil)
	require.NoError(t, err)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusLive)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
	assert.Equal(t, models.StatusRegistration, f.tournament(tournament.ID).Status)
	assert.Empty(t, f.allMatches(tournament.ID))
}

func TestTournamentService_GoLiveGeneratesBracket(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketSingleElimination, 11, 12, 13, 14)

	matches := f.allMatches(tournament.ID)
	assert.Len(t, matches, 3)
	assert.Equal(t, models.StatusLive, f.tournament(tournament.ID).Status)
}

func TestTournamentService_CompleteRequiresFinishedBracket(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketSingleElimination, 1, 2, 3)

	_, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrBracketIncomplete)
	assert.ErrorIs(t, err, ErrStateConflict)

	f.playAll(tournament.ID, lowerIDWins)

	completed, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.ChampionID)
	assert.Equal(t, 1, *completed.ChampionID)
}

func TestTournamentService_DisputedMatchBlocksCompletion(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketSingleElimination, 1, 2)
	final := f.win(tournament.ID, "W-R1M1", 2)

	_, err := f.matches.MarkDisputed(f.ctx, f.organizer, final.ID, nil)
	require.NoError(t, err)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrBracketIncomplete)
}

func TestTournamentService_CloseRegistrationAfterGenerationFails(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1, 2)

	_, err := f.brackets.Generate(f.ctx, f.organizer, tournament.ID)
	require.NoError(t, err)

	_, err = f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusDraft)
	assert.ErrorIs(t, err, ErrStateConflict)

	// сетка уже есть: старт не генерирует её повторно
	f.setStatus(tournament.ID, models.StatusLive)
	assert.Len(t, f.allMatches(tournament.ID), 1)
}

func TestTournamentService_Update(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1, 2, 3)

	name := "Autumn Major"
	rules := "Best of three"
	updated, err := f.tournaments.Update(f.ctx, f.organizer, tournament.ID, UpdateTournamentInput{Name: &name, Rules: &rules})
	require.NoError(t, err)
	assert.Equal(t, "Autumn Major", updated.Name)
	assert.Equal(t, "autumn-major", updated.Slug)
	require.NotNil(t, updated.Rules)
	assert.Equal(t, rules, *updated.Rules)

	tooSmall := 2
	_, err = f.tournaments.Update(f.ctx, f.organizer, tournament.ID, UpdateTournamentInput{MaxParticipants: &tooSmall})
	assert.ErrorIs(t, err, ErrCapacityBelowRegistrations)

	_, err = f.tournaments.Update(f.ctx, player(1), tournament.ID, UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotOwner)

	badEnd := tournament.StartDate.Add(-time.Minute)
	_, err = f.tournaments.Update(f.ctx, f.organizer, tournament.ID, UpdateTournamentInput{EndDate: &badEnd})
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)
	assert.Equal(t, "Autumn Major", f.tournament(tournament.ID).Name)

	f.setStatus(tournament.ID, models.StatusLive)
	_, err = f.tournaments.Update(f.ctx, f.organizer, tournament.ID, UpdateTournamentInput{Name: &name})
	assert.ErrorIs(t, err, ErrTournamentNotEditable)
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestTournamentService_List(t *testing.T) {
	f := newFixture(t)
	first := f.createTournament(models.BracketSingleElimination, 4)
	f.createTournament(models.BracketRoundRobin, 4)
	f.setStatus(first.ID, models.StatusRegistration)

	status := models.StatusRegistration
	list, err := f.tournaments.List(f.ctx, repositories.ListTournamentsFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	all, err := f.tournaments.List(f.ctx, repositories.ListTournamentsFilter{OrganizerID: &f.organizer.UserID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bad := models.TournamentStatus("unknown")
	_, err = f.tournaments.List(f.ctx, repositories.ListTournamentsFilter{Status: &bad})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTournamentService_UploadBanner(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)

	first, err := f.tournaments.UploadBanner(f.ctx, f.organizer, tournament.ID, "image/png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	require.NotNil(t, first.BannerKey)
	assert.True(t, strings.HasPrefix(*first.BannerKey, "tournaments/banners/"))
	assert.True(t, strings.HasSuffix(*first.BannerKey, ".png"))
	require.NotNil(t, first.BannerURL)
	assert.Equal(t, testCDN+"/"+*first.BannerKey, *first.BannerURL)

	stored, ok := f.uploader.Object(*first.BannerKey)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(stored))

	second, err := f.tournaments.UploadBanner(f.ctx, f.organizer, tournament.ID, "image/webp", bytes.NewReader([]byte("webp")))
	require.NoError(t, err)
	assert.NotEqual(t, *first.BannerKey, *second.BannerKey)
	_, ok = f.uploader.Object(*first.BannerKey)
	assert.False(t, ok, "old banner must be removed")

	got, err := f.tournaments.GetByID(f.ctx, tournament.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BannerURL)
	assert.Equal(t, *second.BannerURL, *got.BannerURL)

	_, err = f.tournaments.UploadBanner(f.ctx, f.organizer, tournament.ID, "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = f.tournaments.UploadBanner(f.ctx, player(3), tournament.ID, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestTournamentService_UploadBannerWithoutStorage(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)

	svc := NewTournamentService(f.store.Transactor(), f.store.Tournaments(), f.store.Registrations(), f.store.Matches(), f.store.Games(), f.brackets, nil, f.publisher, newTestLogger())
	_, err := svc.UploadBanner(f.ctx, f.organizer, tournament.ID, "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestTournamentService_GetBracket(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketDoubleElimination, 1, 2, 3, 4)

	view, err := f.tournaments.GetBracket(f.ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, view.Tournament.ID)
	assert.Len(t, view.Participants, 4)
	assert.Nil(t, view.Standings)

	require.Len(t, view.Sides, 3)
	assert.Equal(t, models.SideWinners, view.Sides[0].Side)
	assert.Equal(t, models.SideLosers, view.Sides[1].Side)
	assert.Equal(t, models.SideGrandFinal, view.Sides[2].Side)

	winners := view.Sides[0].Rounds
	require.Len(t, winners, 2)
	assert.Equal(t, 1, winners[0].Round)
	assert.Len(t, winners[0].Matches, 2)
	assert.Len(t, winners[1].Matches, 1)

	_, err = f.tournaments.GetBracket(f.ctx, 9999)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestTournamentService_GetBracketRoundRobinStandings(t *testing.T) {
	f := newFixture(t)
	tournament := f.startTournament(models.BracketRoundRobin, 1, 2, 3)
	f.playAll(tournament.ID, lowerIDWins)

	view, err := f.tournaments.GetBracket(f.ctx, tournament.ID)
	require.NoError(t, err)
	require.Len(t, view.Standings, 3)
	assert.Equal(t, 1, view.Standings[0].ParticipantID)
	assert.Equal(t, 2, view.Standings[0].Points)
	assert.Equal(t, 3, view.Standings[2].ParticipantID)
}

func TestTournamentService_CloseExpiredRegistrations(t *testing.T) {
	f := newFixture(t)
	deadline := time.Now().Add(time.Hour)

	expiring := f.createTournament(models.BracketSingleElimination, 4, func(in *CreateTournamentInput) {
		in.RegistrationDeadline = &deadline
	})
	f.setStatus(expiring.ID, models.StatusRegistration)
	f.registerConfirmed(expiring.ID, 1, 2, 3)

	openEnded := f.createTournament(models.BracketSingleElimination, 4)
	f.setStatus(openEnded.ID, models.StatusRegistration)

	draft := f.createTournament(models.BracketSingleElimination, 4, func(in *CreateTournamentInput) {
		in.RegistrationDeadline = &deadline
	})

	closed, err := f.tournaments.CloseExpiredRegistrations(f.ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, closed)

	after := deadline.Add(time.Minute)
	closed, err = f.tournaments.CloseExpiredRegistrations(f.ctx, after)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	// статус не меняется, закрытие только фиксируется
	got := f.tournament(expiring.ID)
	assert.Equal(t, models.StatusRegistration, got.Status)
	require.NotNil(t, got.RegistrationClosedAt)
	assert.True(t, got.RegistrationClosedAt.Equal(after))
	assert.Nil(t, f.tournament(openEnded.ID).RegistrationClosedAt)
	assert.Nil(t, f.tournament(draft.ID).RegistrationClosedAt)

	notices := f.publisher.OfType(events.RegistrationClosed)
	require.Len(t, notices, 1)
	payload := notices[0].Payload.(events.RegistrationClosedPayload)
	assert.Equal(t, expiring.ID, payload.TournamentID)
	assert.Equal(t, 3, payload.Confirmed)
	assert.True(t, payload.Deadline.Equal(deadline))

	// следующий запуск уже ничего не делает
	closed, err = f.tournaments.CloseExpiredRegistrations(f.ctx, after.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Len(t, f.publisher.OfType(events.RegistrationClosed), 1)
}

func TestTournamentService_GoLiveAfterRegistrationDeadline(t *testing.T) {
	f := newFixture(t)
	deadline := time.Now().Add(time.Hour)
	tournament := f.createTournament(models.BracketSingleElimination, 4, func(in *CreateTournamentInput) {
		in.RegistrationDeadline = &deadline
	})
	f.setStatus(tournament.ID, models.StatusRegistration)
	f.registerConfirmed(tournament.ID, 1, 2, 3, 4)

	for _, tick := range []time.Duration{time.Minute, 2 * time.Minute} {
		_, err := f.tournaments.CloseExpiredRegistrations(f.ctx, deadline.Add(tick))
		require.NoError(t, err)
	}

	live, err := f.tournaments.ChangeStatus(f.ctx, f.organizer, tournament.ID, models.StatusLive)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, live.Status)
	assert.Len(t, f.allMatches(tournament.ID), 3)
}

func TestTournamentService_NewDeadlineReopensClosing(t *testing.T) {
	f := newFixture(t)
	deadline := time.Now().Add(time.Hour)
	tournament := f.createTournament(models.BracketSingleElimination, 4, func(in *CreateTournamentInput) {
		in.RegistrationDeadline = &deadline
	})
	f.setStatus(tournament.ID, models.StatusRegistration)

	closed, err := f.tournaments.CloseExpiredRegistrations(f.ctx, deadline.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	extended := deadline.Add(24 * time.Hour)
	updated, err := f.tournaments.Update(f.ctx, f.organizer, tournament.ID, UpdateTournamentInput{RegistrationDeadline: &extended})
	require.NoError(t, err)
	assert.Nil(t, updated.RegistrationClosedAt)

	closed, err = f.tournaments.CloseExpiredRegistrations(f.ctx, deadline.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, closed)

	closed, err = f.tournaments.CloseExpiredRegistrations(f.ctx, extended.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.Len(t, f.publisher.OfType(events.RegistrationClosed), 2)
}
