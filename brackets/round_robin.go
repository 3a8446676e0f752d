package brackets

import (
	"context"

	"github.com/Dosada05/esports-platform/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket pairs every participant with every other exactly once using the
// circle method. With an odd count one participant sits out each round.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	// nil is the resting slot for odd counts
	ring := make([]*int, 0, len(params.Participants)+1)
	for _, id := range params.Participants {
		id := id
		ring = append(ring, &id)
	}
	if len(ring)%2 == 1 {
		ring = append(ring, nil)
	}

	n := len(ring)
	firstRound := params.firstRound()
	prefix := sidePrefix(models.SideGroup)
	matches := make([]*BracketMatch, 0, len(params.Participants)*(len(params.Participants)-1)/2)

	for r := 0; r < n-1; r++ {
		round := firstRound + r
		order := 0
		for i := 0; i < n/2; i++ {
			a, b := ring[i], ring[n-1-i]
			if a == nil || b == nil {
				continue
			}
			// the fixed participant alternates sides
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			order++
			matches = append(matches, &BracketMatch{
				UID:            matchUID(prefix, round, order),
				Side:           models.SideGroup,
				Round:          round,
				OrderInRound:   order,
				Participant1ID: intPtr(*a),
				Participant2ID: intPtr(*b),
			})
		}

		last := ring[n-1]
		copy(ring[2:], ring[1:n-1])
		ring[1] = last
	}

	return matches, nil
}
