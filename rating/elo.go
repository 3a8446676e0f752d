// Package rating holds the ELO math used after decisive matches.
package rating

import (
	"errors"
	"math"
)

const (
	DefaultKFactor = 32.0
	DefaultRating  = 1000.0
)

var ErrInvalidKFactor = errors.New("k-factor must be positive")

// Expected returns the expected score of a player rated r against an opponent rated opponent.
func Expected(r, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-r)/400))
}

// Delta returns the points the winner gains and the loser gives up.
// The result is always within [0, k].
func Delta(winner, loser, k float64) float64 {
	return k * (1 - Expected(winner, loser))
}

// Outcome is the result of applying one decisive match.
type Outcome struct {
	ExpectedWinner float64 `json:"expected_winner"`
	ExpectedLoser  float64 `json:"expected_loser"`
	Delta          float64 `json:"delta"`
	WinnerBefore   float64 `json:"winner_before"`
	WinnerAfter    float64 `json:"winner_after"`
	LoserBefore    float64 `json:"loser_before"`
	LoserAfter     float64 `json:"loser_after"`
}

// Compute applies a decisive result. The loser never drops below zero,
// so LoserBefore-LoserAfter can be smaller than Delta.
func Compute(winner, loser, k float64) (Outcome, error) {
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return Outcome{}, ErrInvalidKFactor
	}
	ew := Expected(winner, loser)
	d := k * (1 - ew)
	return Outcome{
		ExpectedWinner: ew,
		ExpectedLoser:  1 - ew,
		Delta:          d,
		WinnerBefore:   winner,
		WinnerAfter:    winner + d,
		LoserBefore:    loser,
		LoserAfter:     math.Max(0, loser-d),
	}, nil
}
