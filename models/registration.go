package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationRejected  RegistrationStatus = "rejected"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationConfirmed, RegistrationRejected, RegistrationCancelled:
		return true
	}
	return false
}

// Active reports whether a registration in status s still holds a slot.
func (s RegistrationStatus) Active() bool {
	return s == RegistrationPending || s == RegistrationConfirmed
}

// Registration links a tournament to exactly one of a user or a team.
type Registration struct {
	ID           int                `json:"id" db:"id"`
	TournamentID int                `json:"tournament_id" db:"tournament_id"`
	UserID       *int               `json:"user_id,omitempty" db:"user_id"`
	TeamID       *int               `json:"team_id,omitempty" db:"team_id"`
	Status       RegistrationStatus `json:"status" db:"status"`
	Seed         *int               `json:"seed,omitempty" db:"seed"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// ParticipantID returns the id that goes into match slots: the team id for
// team registrations, the user id otherwise.
func (r *Registration) ParticipantID() int {
	if r.TeamID != nil {
		return *r.TeamID
	}
	if r.UserID != nil {
		return *r.UserID
	}
	return 0
}
