package models

import (
	"encoding/json"
	"time"
)

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft        TournamentStatus = "draft"
	StatusRegistration TournamentStatus = "registration"
	StatusLive         TournamentStatus = "live"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	StatusDraft:        {StatusRegistration, StatusCancelled},
	StatusRegistration: {StatusLive, StatusDraft, StatusCancelled},
	StatusLive:         {StatusCompleted, StatusCancelled},
	StatusCompleted:    {},
	StatusCancelled:    {},
}

// Valid reports whether s is one of the known tournament statuses.
func (s TournamentStatus) Valid() bool {
	_, ok := tournamentTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Editable reports whether tournament fields may be changed in status s.
func (s TournamentStatus) Editable() bool {
	return s == StatusDraft || s == StatusRegistration
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BracketType string

const (
	BracketSingleElimination BracketType = "single_elimination"
	BracketDoubleElimination BracketType = "double_elimination"
	BracketRoundRobin        BracketType = "round_robin"
)

func (b BracketType) Valid() bool {
	switch b {
	case BracketSingleElimination, BracketDoubleElimination, BracketRoundRobin:
		return true
	}
	return false
}

// PrizeShare is one place of the prize distribution, e.g. {"place":1,"percent":50}.
type PrizeShare struct {
	Place   int     `json:"place"`
	Percent float64 `json:"percent"`
}

// Tournament представляет турнир.
type Tournament struct {
	ID                   int              `json:"id" db:"id"`
	Name                 string           `json:"name" db:"name"`
	Slug                 string           `json:"slug" db:"slug"`
	Description          *string          `json:"description,omitempty" db:"description"`
	GameID               int              `json:"game_id" db:"game_id"`
	OrganizerID          int              `json:"organizer_id" db:"organizer_id"`
	BracketType          BracketType      `json:"bracket_type" db:"bracket_type"`
	MaxParticipants      int              `json:"max_participants" db:"max_participants"`
	IsTeamBased          bool             `json:"is_team_based" db:"is_team_based"`
	TeamSize             int              `json:"team_size" db:"team_size"`
	PrizePool            float64          `json:"prize_pool" db:"prize_pool"`
	PrizeDistributionRaw *string          `json:"-" db:"prize_distribution"`
	StartDate            time.Time        `json:"start_date" db:"start_date"`
	EndDate              *time.Time       `json:"end_date,omitempty" db:"end_date"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty" db:"registration_deadline"`
	RegistrationClosedAt *time.Time       `json:"registration_closed_at,omitempty" db:"registration_closed_at"`
	Status               TournamentStatus `json:"status" db:"status"`
	Rules                *string          `json:"rules,omitempty" db:"rules"`
	BannerKey            *string          `json:"-" db:"banner_key"`
	ChampionID           *int             `json:"champion_id,omitempty" db:"champion_id"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`

	// Не хранятся в БД, заполняются сервисом
	BannerURL         *string      `json:"banner_url,omitempty" db:"-"`
	PrizeDistribution []PrizeShare `json:"prize_distribution,omitempty" db:"-"`
}

// DecodePrizeDistribution fills PrizeDistribution from the raw JSON column.
func (t *Tournament) DecodePrizeDistribution() error {
	if t.PrizeDistributionRaw == nil || *t.PrizeDistributionRaw == "" {
		t.PrizeDistribution = nil
		return nil
	}
	var shares []PrizeShare
	if err := json.Unmarshal([]byte(*t.PrizeDistributionRaw), &shares); err != nil {
		return err
	}
	t.PrizeDistribution = shares
	return nil
}

// EncodePrizeDistribution stores PrizeDistribution into the raw JSON column.
func (t *Tournament) EncodePrizeDistribution() error {
	if len(t.PrizeDistribution) == 0 {
		t.PrizeDistributionRaw = nil
		return nil
	}
	raw, err := json.Marshal(t.PrizeDistribution)
	if err != nil {
		return err
	}
	s := string(raw)
	t.PrizeDistributionRaw = &s
	return nil
}

// RegistrationOpenAt reports whether registrations are accepted at now.
func (t *Tournament) RegistrationOpenAt(now time.Time) bool {
	if t.Status != StatusRegistration {
		return false
	}
	return t.RegistrationDeadline == nil || now.Before(*t.RegistrationDeadline)
}
