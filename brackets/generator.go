package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/esports-platform/models"
)

var (
	ErrInsufficientParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrUnsupportedBracketType   = errors.New("unsupported bracket type")
	ErrDuplicateParticipant     = errors.New("participant listed more than once")
)

// GenerateBracketParams describes one generation run.
// Participants are ordered by seed: index 0 is seed 1.
type GenerateBracketParams struct {
	TournamentID int
	Participants []int

	// Side overrides the side of elimination matches (used for playoffs).
	Side models.BracketSide
	// FirstRound is the round number of the first generated round, 1 when zero.
	FirstRound int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}

// NewGenerator returns the generator for a tournament bracket type.
func NewGenerator(bracketType models.BracketType) (BracketGenerator, error) {
	switch bracketType {
	case models.BracketSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.BracketDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.BracketRoundRobin:
		return NewRoundRobinGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBracketType, bracketType)
	}
}

func (p GenerateBracketParams) validate() error {
	if len(p.Participants) < 2 {
		return fmt.Errorf("tournament %d: %w (found %d)", p.TournamentID, ErrInsufficientParticipants, len(p.Participants))
	}
	seen := make(map[int]struct{}, len(p.Participants))
	for _, id := range p.Participants {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("tournament %d: %w: %d", p.TournamentID, ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (p GenerateBracketParams) firstRound() int {
	if p.FirstRound < 1 {
		return 1
	}
	return p.FirstRound
}
