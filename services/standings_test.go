package services

import (
	"testing"

	"github.com/Dosada05/esports-platform/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupMatch(p1, p2, winner int, s1, s2 *int) *models.Match {
	return &models.Match{
		Side:           models.SideGroup,
		Status:         models.MatchCompleted,
		Participant1ID: intPtr(p1),
		Participant2ID: intPtr(p2),
		WinnerID:       intPtr(winner),
		Score1:         s1,
		Score2:         s2,
	}
}

func standingOrder(table []models.Standing) []int {
	ids := make([]int, len(table))
	for i, st := range table {
		ids[i] = st.ParticipantID
	}
	return ids
}

func TestComputeStandings_TieBreaks(t *testing.T) {
	tests := []struct {
		name         string
		participants []int
		matches      []*models.Match
		want         []int
	}{
		{
			name:         "points first",
			participants: []int{1, 2, 3},
			matches: []*models.Match{
				groupMatch(1, 2, 2, intPtr(0), intPtr(1)),
				groupMatch(2, 3, 2, intPtr(1), intPtr(0)),
				groupMatch(1, 3, 1, intPtr(1), intPtr(0)),
			},
			want: []int{2, 1, 3},
		},
		{
			name:         "score difference then seed",
			participants: []int{10, 20, 30},
			matches: []*models.Match{
				groupMatch(10, 20, 10, intPtr(3), intPtr(0)),
				groupMatch(20, 30, 20, intPtr(3), intPtr(1)),
				groupMatch(30, 10, 30, intPtr(2), intPtr(1)),
			},
			want: []int{10, 20, 30},
		},
		{
			name:         "score for",
			participants: []int{1, 2, 3, 4},
			matches: []*models.Match{
				groupMatch(1, 2, 1, intPtr(1), intPtr(0)),
				groupMatch(3, 4, 3, intPtr(5), intPtr(4)),
			},
			want: []int{3, 1, 4, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := ComputeStandings(tt.participants, tt.matches)
			assert.Equal(t, tt.want, standingOrder(table))
			for i, st := range table {
				assert.Equal(t, i+1, st.Rank)
			}
		})
	}
}

func TestComputeStandings_CountsOnlyFinishedGroupMatches(t *testing.T) {
	pending := groupMatch(1, 2, 1, nil, nil)
	pending.Status = models.MatchPending
	pending.WinnerID = nil
	playoff := groupMatch(2, 1, 2, intPtr(3), intPtr(0))
	playoff.Side = models.SidePlayoff

	table := ComputeStandings([]int{1, 2, 3}, []*models.Match{
		pending,
		playoff,
		groupMatch(3, 2, 3, nil, nil),
	})
	require.Len(t, table, 3)
	assert.Equal(t, []int{3, 1, 2}, standingOrder(table))

	top := table[0]
	assert.Equal(t, 1, top.Played)
	assert.Equal(t, 1, top.Wins)
	assert.Equal(t, 1, top.Points)
	assert.Equal(t, 0, top.ScoreFor)
	assert.Equal(t, 3, *top.Seed)

	idle := table[1]
	assert.Equal(t, 0, idle.Played)
	assert.Equal(t, 2, table[2].ParticipantID)
	assert.Equal(t, 1, table[2].Losses)
}
