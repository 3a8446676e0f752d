// Package events publishes domain events after their transaction has committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Dosada05/esports-platform/models"
)

const (
	TournamentStatusChanged = "tournament.status_changed"
	RegistrationClosed      = "tournament.registration_closed"
	MatchCompleted          = "match.completed"
	RankingUpdated          = "ranking.updated"
)

type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type TournamentStatusChangedPayload struct {
	TournamentID int                     `json:"tournament_id"`
	From         models.TournamentStatus `json:"from"`
	To           models.TournamentStatus `json:"to"`
}

// RegistrationClosedPayload is sent once the registration deadline of a tournament has passed.
type RegistrationClosedPayload struct {
	TournamentID int       `json:"tournament_id"`
	Deadline     time.Time `json:"deadline"`
	Confirmed    int       `json:"confirmed"`
}

type MatchCompletedPayload struct {
	TournamentID int  `json:"tournament_id"`
	MatchID      int  `json:"match_id"`
	WinnerID     int  `json:"winner_id"`
	LoserID      *int `json:"loser_id,omitempty"`
	Score1       *int `json:"score1,omitempty"`
	Score2       *int `json:"score2,omitempty"`
	Correction   bool `json:"correction"`
	IsBye        bool `json:"is_bye"`
}

type RankingUpdatedPayload struct {
	UserID    int     `json:"user_id"`
	GameID    int     `json:"game_id"`
	MatchID   int     `json:"match_id"`
	EloRating float64 `json:"elo_rating"`
	EloChange float64 `json:"elo_change"`
}

// Publisher delivers events. Delivery is best effort: callers log errors and move on.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (noopPublisher) Close() error { return nil }

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// OfType returns the published events of one type.
func (p *MemoryPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
