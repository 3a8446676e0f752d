package services

import (
	"testing"
	"time"

	"github.com/Dosada05/esports-platform/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationService_RegisterOnDraftIsClosed(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)

	_, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
	assert.ErrorIs(t, err, ErrStateConflict)

	regs, err := f.registrations.ListByTournament(f.ctx, tournament.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestRegistrationService_Capacity(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 2)
	f.setStatus(tournament.ID, models.StatusRegistration)

	first, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationPending, first.Status)
	require.NotNil(t, first.UserID)
	assert.Nil(t, first.TeamID)

	_, err = f.registrations.UpdateStatus(f.ctx, f.organizer, first.ID, models.RegistrationConfirmed)
	require.NoError(t, err)
	_, err = f.registrations.Register(f.ctx, player(2), tournament.ID, nil)
	require.NoError(t, err)

	// confirmed + pending уже равно вместимости
	_, err = f.registrations.Register(f.ctx, player(3), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrTournamentFull)

	count, err := f.store.Registrations().CountActive(f.ctx, nil, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// отклонённая заявка освобождает место
	regs, err := f.registrations.ListByTournament(f.ctx, tournament.ID, nil)
	require.NoError(t, err)
	var pending *models.Registration
	for _, r := range regs {
		if r.Status == models.RegistrationPending {
			pending = r
		}
	}
	require.NotNil(t, pending)
	_, err = f.registrations.UpdateStatus(f.ctx, f.organizer, pending.ID, models.RegistrationRejected)
	require.NoError(t, err)

	_, err = f.registrations.Register(f.ctx, player(3), tournament.ID, nil)
	assert.NoError(t, err)
}

func TestRegistrationService_Duplicate(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1)

	_, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	teamID := 77
	_, err = f.registrations.Register(f.ctx, player(2), tournament.ID, &teamID)
	assert.ErrorIs(t, err, ErrRegistrationTeamNotAllowed)
}

func TestRegistrationService_FullBeforeDuplicate(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 2)
	f.setStatus(tournament.ID, models.StatusRegistration)
	f.registerConfirmed(tournament.ID, 1, 2)

	_, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrTournamentFull)
	assert.NotErrorIs(t, err, ErrRegistrationConflict)
}

func TestRegistrationService_DeadlinePassed(t *testing.T) {
	f := newFixture(t)
	deadline := time.Now().Add(time.Hour)
	tournament := f.createTournament(models.BracketSingleElimination, 4, func(in *CreateTournamentInput) {
		in.RegistrationDeadline = &deadline
	})
	f.setStatus(tournament.ID, models.StatusRegistration)

	svc := f.registrations.(*registrationService)
	svc.now = func() time.Time { return deadline.Add(time.Second) }

	_, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationClosed)

	svc.now = func() time.Time { return deadline.Add(-time.Second) }
	_, err = f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	assert.NoError(t, err)
}

func TestRegistrationService_TeamRegistration(t *testing.T) {
	f := newFixture(t)
	team := f.store.AddTeam(models.Team{Name: "Navi", CaptainID: 10})
	otherTeam := f.store.AddTeam(models.Team{Name: "Spirit", CaptainID: 20})

	tournament := f.createTournament(models.BracketDoubleElimination, 4, func(in *CreateTournamentInput) {
		in.IsTeamBased = true
		in.TeamSize = 5
	})
	assert.Equal(t, 5, tournament.TeamSize)
	f.setStatus(tournament.ID, models.StatusRegistration)

	_, err := f.registrations.Register(f.ctx, player(10), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationTeamRequired)

	_, err = f.registrations.Register(f.ctx, player(11), tournament.ID, &team.ID)
	assert.ErrorIs(t, err, ErrNotCaptain)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	missing := 4040
	_, err = f.registrations.Register(f.ctx, player(10), tournament.ID, &missing)
	assert.ErrorIs(t, err, ErrTeamNotFound)

	reg, err := f.registrations.Register(f.ctx, player(10), tournament.ID, &team.ID)
	require.NoError(t, err)
	require.NotNil(t, reg.TeamID)
	assert.Equal(t, team.ID, *reg.TeamID)
	assert.Nil(t, reg.UserID)
	assert.Equal(t, team.ID, reg.ParticipantID())

	_, err = f.registrations.Register(f.ctx, player(10), tournament.ID, &team.ID)
	assert.ErrorIs(t, err, ErrRegistrationConflict)

	_, err = f.registrations.Register(f.ctx, player(20), tournament.ID, &otherTeam.ID)
	assert.NoError(t, err)

	// отменить заявку команды может только капитан
	_, err = f.registrations.Cancel(f.ctx, player(20), reg.ID)
	assert.ErrorIs(t, err, ErrNotCaptain)
	cancelled, err := f.registrations.Cancel(f.ctx, player(10), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationCancelled, cancelled.Status)
}

func TestRegistrationService_UpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)
	f.setStatus(tournament.ID, models.StatusRegistration)

	reg, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	require.NoError(t, err)

	_, err = f.registrations.UpdateStatus(f.ctx, player(2), reg.ID, models.RegistrationConfirmed)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.registrations.UpdateStatus(f.ctx, f.organizer, reg.ID, models.RegistrationCancelled)
	assert.ErrorIs(t, err, ErrRegistrationInvalidStatus)

	confirmed, err := f.registrations.UpdateStatus(f.ctx, f.admin, reg.ID, models.RegistrationConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationConfirmed, confirmed.Status)

	_, err = f.registrations.UpdateStatus(f.ctx, f.organizer, reg.ID, models.RegistrationRejected)
	assert.ErrorIs(t, err, ErrRegistrationInvalidTransition)
	assert.ErrorIs(t, err, ErrStateConflict)

	_, err = f.registrations.UpdateStatus(f.ctx, f.organizer, 31337, models.RegistrationConfirmed)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationService_Cancel(t *testing.T) {
	f := newFixture(t)
	tournament := f.createTournament(models.BracketSingleElimination, 4)
	f.setStatus(tournament.ID, models.StatusRegistration)

	reg, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	require.NoError(t, err)

	_, err = f.registrations.Cancel(f.ctx, player(2), reg.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	cancelled, err := f.registrations.Cancel(f.ctx, player(1), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationCancelled, cancelled.Status)

	_, err = f.registrations.Cancel(f.ctx, player(1), reg.ID)
	assert.ErrorIs(t, err, ErrStateConflict)

	// после отмены можно зарегистрироваться снова
	again, err := f.registrations.Register(f.ctx, player(1), tournament.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, reg.ID, again.ID)
}

func TestRegistrationService_LockedOutsideRegistration(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1, 2)
	regs, err := f.registrations.ListByTournament(f.ctx, tournament.ID, nil)
	require.NoError(t, err)
	require.Len(t, regs, 2)

	f.setStatus(tournament.ID, models.StatusLive)

	_, err = f.registrations.Cancel(f.ctx, player(1), regs[0].ID)
	assert.ErrorIs(t, err, ErrRegistrationLocked)

	_, err = f.registrations.SetSeed(f.ctx, f.organizer, regs[0].ID, intPtr(1))
	assert.ErrorIs(t, err, ErrRegistrationLocked)

	_, err = f.registrations.Register(f.ctx, player(3), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegistrationService_GeneratedBracketClosesRegistration(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1, 2)

	_, err := f.brackets.Generate(f.ctx, f.organizer, tournament.ID)
	require.NoError(t, err)

	_, err = f.registrations.Register(f.ctx, player(3), tournament.ID, nil)
	assert.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestRegistrationService_SeedingOrdersBracket(t *testing.T) {
	f := newFixture(t)
	tournament := f.openTournament(models.BracketSingleElimination, 1, 2, 3, 4)
	regs, err := f.registrations.ListByTournament(f.ctx, tournament.ID, nil)
	require.NoError(t, err)

	byUser := make(map[int]*models.Registration)
	for _, r := range regs {
		byUser[*r.UserID] = r
	}

	_, err = f.registrations.SetSeed(f.ctx, f.organizer, byUser[4].ID, intPtr(1))
	require.NoError(t, err)
	_, err = f.registrations.SetSeed(f.ctx, f.organizer, byUser[3].ID, intPtr(2))
	require.NoError(t, err)

	_, err = f.registrations.SetSeed(f.ctx, f.organizer, byUser[1].ID, intPtr(0))
	assert.ErrorIs(t, err, ErrInvalidSeed)
	_, err = f.registrations.SetSeed(f.ctx, player(4), byUser[4].ID, intPtr(1))
	assert.ErrorIs(t, err, ErrNotOwner)

	confirmed := models.RegistrationConfirmed
	ordered, err := f.registrations.ListByTournament(f.ctx, tournament.ID, &confirmed)
	require.NoError(t, err)
	require.Len(t, ordered, 4)
	assert.Equal(t, []int{4, 3, 1, 2}, []int{*ordered[0].UserID, *ordered[1].UserID, *ordered[2].UserID, *ordered[3].UserID})

	f.setStatus(tournament.ID, models.StatusLive)

	// посев 1 против посева 4, посев 2 против посева 3
	m1 := f.match(tournament.ID, "W-R1M1")
	m2 := f.match(tournament.ID, "W-R1M2")
	assert.Equal(t, 4, *m1.Participant1ID)
	assert.Equal(t, 2, *m1.Participant2ID)
	assert.Equal(t, 3, *m2.Participant1ID)
	assert.Equal(t, 1, *m2.Participant2ID)
}
