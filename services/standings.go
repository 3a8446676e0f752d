package services

import (
	"sort"

	"github.com/Dosada05/esports-platform/models"
)

// ComputeStandings builds the round-robin table from completed group matches.
// participants are in entry order; the position is used as seed for the last tie-break.
// Победа = 1 очко.
func ComputeStandings(participants []int, matches []*models.Match) []models.Standing {
	rows := make(map[int]*models.Standing, len(participants))
	table := make([]*models.Standing, 0, len(participants))
	for i, id := range participants {
		if _, dup := rows[id]; dup {
			continue
		}
		st := &models.Standing{ParticipantID: id, Seed: intPtr(i + 1)}
		rows[id] = st
		table = append(table, st)
	}

	for _, m := range matches {
		if m.Side != models.SideGroup || m.Status != models.MatchCompleted || m.WinnerID == nil {
			continue
		}
		if m.Participant1ID == nil || m.Participant2ID == nil {
			continue
		}
		p1, p2 := rows[*m.Participant1ID], rows[*m.Participant2ID]
		if p1 == nil || p2 == nil {
			continue
		}
		s1, s2 := scoreOrZero(m.Score1), scoreOrZero(m.Score2)

		p1.Played++
		p2.Played++
		p1.ScoreFor += s1
		p1.ScoreAgainst += s2
		p2.ScoreFor += s2
		p2.ScoreAgainst += s1
		if *m.WinnerID == p1.ParticipantID {
			p1.Wins++
			p2.Losses++
		} else {
			p2.Wins++
			p1.Losses++
		}
	}

	for _, st := range table {
		st.Points = st.Wins
		st.ScoreDifference = st.ScoreFor - st.ScoreAgainst
	}
	sort.SliceStable(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.ScoreDifference != b.ScoreDifference {
			return a.ScoreDifference > b.ScoreDifference
		}
		if a.ScoreFor != b.ScoreFor {
			return a.ScoreFor > b.ScoreFor
		}
		return *a.Seed < *b.Seed
	})

	out := make([]models.Standing, len(table))
	for i, st := range table {
		st.Rank = i + 1
		out[i] = *st
	}
	return out
}

func scoreOrZero(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}
