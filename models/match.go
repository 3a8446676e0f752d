package models

import "time"

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
	MatchDisputed   MatchStatus = "disputed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchInProgress, MatchCompleted, MatchDisputed:
		return true
	}
	return false
}

// BracketSide tells which part of the bracket graph a match belongs to.
type BracketSide string

const (
	SideWinners    BracketSide = "winners"
	SideLosers     BracketSide = "losers"
	SideGrandFinal BracketSide = "grand_final"
	SideGroup      BracketSide = "group"
	SidePlayoff    BracketSide = "playoff"
)

type Match struct {
	ID              int         `json:"id" db:"id"`
	TournamentID    int         `json:"tournament_id" db:"tournament_id"`
	BracketMatchUID string      `json:"bracket_match_uid" db:"bracket_match_uid"`
	Side            BracketSide `json:"side" db:"side"`
	Round           int         `json:"round" db:"round"`
	MatchNumber     int         `json:"match_number" db:"match_number"`

	Participant1ID *int `json:"participant1_id,omitempty" db:"participant1_id"`
	Participant2ID *int `json:"participant2_id,omitempty" db:"participant2_id"`
	Score1         *int `json:"score1,omitempty" db:"score1"`
	Score2         *int `json:"score2,omitempty" db:"score2"`
	WinnerID       *int `json:"winner_id,omitempty" db:"winner_id"`

	Status MatchStatus `json:"status" db:"status"`
	// IsBye marks a match that only ever gets one participant.
	IsBye bool `json:"is_bye" db:"is_bye"`
	// IsReset marks the conditional second grand final.
	IsReset bool `json:"is_reset" db:"is_reset"`

	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextSlot         *int `json:"next_slot,omitempty" db:"next_slot"`
	LoserNextMatchID *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextSlot    *int `json:"loser_next_slot,omitempty" db:"loser_next_slot"`

	// RatedWinnerID is the winner whose rating change is currently applied.
	RatedWinnerID *int `json:"-" db:"rated_winner_id"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Slot returns the participant in slot 1 or 2.
func (m *Match) Slot(slot int) *int {
	if slot == 1 {
		return m.Participant1ID
	}
	return m.Participant2ID
}

// SetSlot puts participantID (nil clears) into slot 1 or 2.
func (m *Match) SetSlot(slot int, participantID *int) {
	if slot == 1 {
		m.Participant1ID = participantID
		return
	}
	m.Participant2ID = participantID
}

// HasParticipant reports whether id occupies one of the two slots.
func (m *Match) HasParticipant(id int) bool {
	return (m.Participant1ID != nil && *m.Participant1ID == id) ||
		(m.Participant2ID != nil && *m.Participant2ID == id)
}

// LoserID returns the participant that did not win, if both slots and the winner are set.
func (m *Match) LoserID() *int {
	if m.WinnerID == nil || m.Participant1ID == nil || m.Participant2ID == nil {
		return nil
	}
	if *m.WinnerID == *m.Participant1ID {
		return m.Participant2ID
	}
	return m.Participant1ID
}

// Decided reports whether the match has a recorded winner.
func (m *Match) Decided() bool {
	return m.WinnerID != nil && (m.Status == MatchCompleted || m.Status == MatchDisputed)
}
