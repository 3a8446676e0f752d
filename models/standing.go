package models

// Standing is one row of a round-robin table, computed from completed group matches.
type Standing struct {
	ParticipantID   int  `json:"participant_id"`
	Played          int  `json:"played"`
	Wins            int  `json:"wins"`
	Losses          int  `json:"losses"`
	ScoreFor        int  `json:"score_for"`
	ScoreAgainst    int  `json:"score_against"`
	ScoreDifference int  `json:"score_difference"`
	Points          int  `json:"points"`
	Rank            int  `json:"rank"`
	Seed            *int `json:"seed,omitempty"`
}
