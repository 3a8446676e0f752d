package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/esports-platform/models"
)

func participants(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func generate(t *testing.T, bt models.BracketType, n int) []*BracketMatch {
	t.Helper()
	gen, err := NewGenerator(bt)
	require.NoError(t, err)
	matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{TournamentID: 1, Participants: participants(n)})
	require.NoError(t, err)
	return matches
}

func index(matches []*BracketMatch) map[string]*BracketMatch {
	out := make(map[string]*BracketMatch, len(matches))
	for _, m := range matches {
		out[m.UID] = m
	}
	return out
}

func countReal(matches []*BracketMatch) int {
	n := 0
	for _, m := range matches {
		if !m.IsBye {
			n++
		}
	}
	return n
}

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, SeedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, SeedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, SeedOrder(8))
	assert.Equal(t, 8, BracketSize(5))
	assert.Equal(t, 4, BracketSize(4))
	assert.Equal(t, 3, RoundsFor(5))
	assert.Equal(t, 1, RoundsFor(2))
}

func TestSingleElimination_FourParticipants(t *testing.T) {
	matches := generate(t, models.BracketSingleElimination, 4)
	require.Len(t, matches, 3)

	byUID := index(matches)
	r1m1, r1m2, final := byUID["W-R1M1"], byUID["W-R1M2"], byUID["W-R2M1"]
	require.NotNil(t, r1m1)
	require.NotNil(t, r1m2)
	require.NotNil(t, final)

	assert.Equal(t, 1, r1m1.Round)
	assert.Equal(t, 2, final.Round)
	assert.Nil(t, final.Participant1ID)
	assert.Nil(t, final.Participant2ID)
	assert.Equal(t, &SlotRef{UID: "W-R2M1", Slot: 1}, r1m1.WinnerTo)
	assert.Equal(t, &SlotRef{UID: "W-R2M1", Slot: 2}, r1m2.WinnerTo)
	assert.Nil(t, final.WinnerTo)

	// seed 1 vs seed 4, seed 2 vs seed 3
	assert.Equal(t, 100, *r1m1.Participant1ID)
	assert.Equal(t, 103, *r1m1.Participant2ID)
	assert.Equal(t, 101, *r1m2.Participant1ID)
	assert.Equal(t, 102, *r1m2.Participant2ID)
}

func TestSingleElimination_FiveParticipantsByes(t *testing.T) {
	matches := generate(t, models.BracketSingleElimination, 5)
	require.Len(t, matches, 7)

	var byeWinners []int
	for _, m := range matches {
		if m.Round != 1 {
			continue
		}
		assert.False(t, m.Participant1ID == nil && m.Participant2ID == nil, "two byes met in %s", m.UID)
		if m.IsBye {
			require.NotNil(t, m.ByeParticipantID)
			byeWinners = append(byeWinners, *m.ByeParticipantID)
		}
	}
	assert.ElementsMatch(t, []int{100, 101, 102}, byeWinners)
	assert.Equal(t, 4, countReal(matches))

	// bye winners are already waiting in round two
	byUID := index(matches)
	assert.Equal(t, 100, *byUID["W-R2M1"].Participant1ID)
	assert.Nil(t, byUID["W-R2M1"].Participant2ID)
	assert.Equal(t, 101, *byUID["W-R2M2"].Participant1ID)
	assert.Equal(t, 102, *byUID["W-R2M2"].Participant2ID)
}

func TestSingleElimination_Completeness(t *testing.T) {
	for n := 2; n <= 17; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			matches := generate(t, models.BracketSingleElimination, n)
			assert.Equal(t, n-1, countReal(matches))

			seen := map[int]int{}
			finals := 0
			for _, m := range matches {
				if m.Round == 1 {
					for _, p := range []*int{m.Participant1ID, m.Participant2ID} {
						if p != nil {
							seen[*p]++
						}
					}
				}
				if m.WinnerTo == nil {
					finals++
				}
				assert.Nil(t, m.LoserTo)
			}
			assert.Len(t, seen, n)
			for id, c := range seen {
				assert.Equal(t, 1, c, "participant %d", id)
			}
			assert.Equal(t, 1, finals)
		})
	}
}

func TestSingleElimination_PlayoffSideAndRounds(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Participants: participants(4),
		Side:         models.SidePlayoff,
		FirstRound:   4,
	})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for _, m := range matches {
		assert.Equal(t, models.SidePlayoff, m.Side)
	}
	byUID := index(matches)
	require.Contains(t, byUID, "P-R4M1")
	require.Contains(t, byUID, "P-R5M1")
	assert.Equal(t, 5, byUID["P-R5M1"].Round)
}

func TestDoubleElimination_Structure(t *testing.T) {
	tests := []struct {
		n       int
		winners int
		losers  int
	}{
		{n: 2, winners: 1, losers: 0},
		{n: 4, winners: 3, losers: 2},
		{n: 8, winners: 7, losers: 6},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			matches := generate(t, models.BracketDoubleElimination, tt.n)
			counts := map[models.BracketSide]int{}
			for _, m := range matches {
				counts[m.Side]++
			}
			assert.Equal(t, tt.winners, counts[models.SideWinners])
			assert.Equal(t, tt.losers, counts[models.SideLosers])
			assert.Equal(t, 1, counts[models.SideGrandFinal])
		})
	}
}

func TestDoubleElimination_FourParticipantsLinks(t *testing.T) {
	byUID := index(generate(t, models.BracketDoubleElimination, 4))

	assert.Equal(t, &SlotRef{UID: "L-R1M1", Slot: 1}, byUID["W-R1M1"].LoserTo)
	assert.Equal(t, &SlotRef{UID: "L-R1M1", Slot: 2}, byUID["W-R1M2"].LoserTo)
	assert.Equal(t, &SlotRef{UID: "L-R2M1", Slot: 1}, byUID["L-R1M1"].WinnerTo)
	assert.Equal(t, &SlotRef{UID: "L-R2M1", Slot: 2}, byUID["W-R2M1"].LoserTo)

	gf := byUID["GF-R3M1"]
	require.NotNil(t, gf)
	assert.Equal(t, &SlotRef{UID: gf.UID, Slot: 1}, byUID["W-R2M1"].WinnerTo)
	assert.Equal(t, &SlotRef{UID: gf.UID, Slot: 2}, byUID["L-R2M1"].WinnerTo)
	assert.Nil(t, gf.WinnerTo)
}

func TestDoubleElimination_TwoParticipants(t *testing.T) {
	byUID := index(generate(t, models.BracketDoubleElimination, 2))
	require.Len(t, byUID, 2)
	assert.Equal(t, &SlotRef{UID: "GF-R2M1", Slot: 1}, byUID["W-R1M1"].WinnerTo)
	assert.Equal(t, &SlotRef{UID: "GF-R2M1", Slot: 2}, byUID["W-R1M1"].LoserTo)
}

func TestDoubleElimination_RealMatchCount(t *testing.T) {
	// everyone but the champion loses twice
	for n := 2; n <= 16; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			matches := generate(t, models.BracketDoubleElimination, n)
			assert.Equal(t, 2*n-2, countReal(matches))

			byUID := index(matches)
			for _, m := range matches {
				if m.WinnerTo != nil {
					assert.Contains(t, byUID, m.WinnerTo.UID)
				}
				if m.LoserTo != nil {
					assert.Contains(t, byUID, m.LoserTo.UID)
					assert.False(t, m.IsBye, "bye %s routes a loser", m.UID)
				}
			}
		})
	}
}

func TestDoubleElimination_LosersByeWaitsForParticipant(t *testing.T) {
	byUID := index(generate(t, models.BracketDoubleElimination, 5))

	lb := byUID["L-R1M1"]
	require.NotNil(t, lb)
	assert.True(t, lb.IsBye)
	assert.Nil(t, lb.ByeParticipantID)
	assert.NotContains(t, byUID, "L-R1M2")
}

func TestRoundRobin_Pairings(t *testing.T) {
	for n := 2; n <= 9; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			matches := generate(t, models.BracketRoundRobin, n)
			require.Len(t, matches, n*(n-1)/2)

			pairs := map[[2]int]int{}
			perRound := map[int]map[int]bool{}
			for _, m := range matches {
				require.NotNil(t, m.Participant1ID)
				require.NotNil(t, m.Participant2ID)
				assert.Equal(t, models.SideGroup, m.Side)
				assert.Nil(t, m.WinnerTo)

				a, b := *m.Participant1ID, *m.Participant2ID
				if a > b {
					a, b = b, a
				}
				pairs[[2]int{a, b}]++

				if perRound[m.Round] == nil {
					perRound[m.Round] = map[int]bool{}
				}
				for _, p := range []int{a, b} {
					assert.False(t, perRound[m.Round][p], "participant %d twice in round %d", p, m.Round)
					perRound[m.Round][p] = true
				}
			}
			for pair, c := range pairs {
				assert.Equal(t, 1, c, "pair %v", pair)
			}
			assert.Len(t, pairs, n*(n-1)/2)
		})
	}
}

func TestGenerators_Preconditions(t *testing.T) {
	for _, bt := range []models.BracketType{models.BracketSingleElimination, models.BracketDoubleElimination, models.BracketRoundRobin} {
		gen, err := NewGenerator(bt)
		require.NoError(t, err)

		_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{TournamentID: 7, Participants: []int{1}})
		assert.ErrorIs(t, err, ErrInsufficientParticipants, gen.GetName())
		assert.Contains(t, err.Error(), "tournament 7", gen.GetName())

		_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{TournamentID: 7, Participants: []int{1, 2, 1}})
		assert.ErrorIs(t, err, ErrDuplicateParticipant, gen.GetName())
		assert.Contains(t, err.Error(), "tournament 7", gen.GetName())
	}

	_, err := NewGenerator("swiss")
	assert.ErrorIs(t, err, ErrUnsupportedBracketType)
}
