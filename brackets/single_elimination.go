package brackets

import (
	"context"

	"github.com/Dosada05/esports-platform/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds a seeded knockout tree. The top seeds receive byes when the
// participant count is not a power of two.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	side := params.Side
	if side == "" {
		side = models.SideWinners
	}

	gr := newGraph()
	buildKnockout(gr, params.Participants, side, params.firstRound())

	matches := gr.resolve()
	sortMatches(matches)
	return matches, nil
}

// buildKnockout adds a full knockout tree to gr and returns its rounds, first round first.
func buildKnockout(gr *graph, participants []int, side models.BracketSide, firstRound int) [][]*BracketMatch {
	size := BracketSize(len(participants))
	numRounds := RoundsFor(len(participants))
	slots := seededSlots(participants, size)
	prefix := sidePrefix(side)

	rounds := make([][]*BracketMatch, 0, numRounds)

	first := make([]*BracketMatch, 0, size/2)
	for i := 0; i < size/2; i++ {
		round := firstRound
		m := gr.add(&BracketMatch{
			UID:            matchUID(prefix, round, i+1),
			Side:           side,
			Round:          round,
			OrderInRound:   i + 1,
			Participant1ID: slots[2*i],
			Participant2ID: slots[2*i+1],
		})
		m.sources[0] = source{kind: sourceSeed}
		m.sources[1] = source{kind: sourceSeed}
		first = append(first, m)
	}
	rounds = append(rounds, first)

	for r := 1; r < numRounds; r++ {
		prev := rounds[r-1]
		round := firstRound + r
		current := make([]*BracketMatch, 0, len(prev)/2)
		for i := 0; i < len(prev)/2; i++ {
			m := gr.add(&BracketMatch{
				UID:          matchUID(prefix, round, i+1),
				Side:         side,
				Round:        round,
				OrderInRound: i + 1,
			})
			gr.linkWinner(prev[2*i], m, 1)
			gr.linkWinner(prev[2*i+1], m, 2)
			current = append(current, m)
		}
		rounds = append(rounds, current)
	}
	return rounds
}
