package brackets

import (
	"context"

	"github.com/Dosada05/esports-platform/models"
)

// ResetMatchUID identifies the second grand final, created only when the
// losers-bracket champion wins the first one.
const ResetMatchUID = "GF-RESET"

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds the winners bracket, the losers bracket fed by winners-bracket
// losers, and the grand final. The reset match is not generated here.
//
// Losers bracket with k winners rounds has 2(k-1) rounds: odd rounds pair survivors
// of the losers bracket (round 1 pairs winners round 1 losers), even rounds bring in
// the losers of winners round j+1.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	gr := newGraph()
	wb := buildKnockout(gr, params.Participants, models.SideWinners, 1)
	k := len(wb)
	wbFinal := wb[k-1][0]

	lbPrefix := sidePrefix(models.SideLosers)
	var lbFinal *BracketMatch
	var prev []*BracketMatch

	for lr := 1; lr <= 2*(k-1); lr++ {
		var current []*BracketMatch
		switch {
		case lr == 1:
			for i := 0; i < len(wb[0])/2; i++ {
				m := gr.add(&BracketMatch{UID: matchUID(lbPrefix, lr, i+1), Side: models.SideLosers, Round: lr, OrderInRound: i + 1})
				gr.linkLoser(wb[0][2*i], m, 1)
				gr.linkLoser(wb[0][2*i+1], m, 2)
				current = append(current, m)
			}
		case lr%2 == 0:
			dropping := wb[lr/2]
			for i := range prev {
				m := gr.add(&BracketMatch{UID: matchUID(lbPrefix, lr, i+1), Side: models.SideLosers, Round: lr, OrderInRound: i + 1})
				gr.linkWinner(prev[i], m, 1)
				// Reversed so that players dropping down avoid an immediate rematch.
				gr.linkLoser(dropping[len(dropping)-1-i], m, 2)
				current = append(current, m)
			}
		default:
			for i := 0; i < len(prev)/2; i++ {
				m := gr.add(&BracketMatch{UID: matchUID(lbPrefix, lr, i+1), Side: models.SideLosers, Round: lr, OrderInRound: i + 1})
				gr.linkWinner(prev[2*i], m, 1)
				gr.linkWinner(prev[2*i+1], m, 2)
				current = append(current, m)
			}
		}
		prev = current
	}
	if len(prev) == 1 {
		lbFinal = prev[0]
	}

	gfRound := 2
	if k > 1 {
		gfRound = 2*(k-1) + 1
	}
	gf := gr.add(&BracketMatch{
		UID:          matchUID(sidePrefix(models.SideGrandFinal), gfRound, 1),
		Side:         models.SideGrandFinal,
		Round:        gfRound,
		OrderInRound: 1,
	})
	gr.linkWinner(wbFinal, gf, 1)
	if lbFinal != nil {
		gr.linkWinner(lbFinal, gf, 2)
	} else {
		gr.linkLoser(wbFinal, gf, 2)
	}

	matches := gr.resolve()
	sortMatches(matches)
	return matches, nil
}
