package models

import "time"

// PlayerRanking is the per (user, game) rating aggregate.
type PlayerRanking struct {
	ID            int        `json:"id" db:"id"`
	UserID        int        `json:"user_id" db:"user_id"`
	GameID        int        `json:"game_id" db:"game_id"`
	EloRating     float64    `json:"elo_rating" db:"elo_rating"`
	PeakElo       float64    `json:"peak_elo" db:"peak_elo"`
	Wins          int        `json:"wins" db:"wins"`
	Losses        int        `json:"losses" db:"losses"`
	MatchesPlayed int        `json:"matches_played" db:"matches_played"`
	WinStreak     int        `json:"win_streak" db:"win_streak"`
	BestWinStreak int        `json:"best_win_streak" db:"best_win_streak"`
	LastMatchAt   *time.Time `json:"last_match_at,omitempty" db:"last_match_at"`
	Version       int        `json:"-" db:"version"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// MatchEloHistory is an append-only audit row of one rating change.
type MatchEloHistory struct {
	ID        int     `json:"id" db:"id"`
	MatchID   int     `json:"match_id" db:"match_id"`
	UserID    int     `json:"user_id" db:"user_id"`
	GameID    int     `json:"game_id" db:"game_id"`
	EloBefore float64 `json:"elo_before" db:"elo_before"`
	EloAfter  float64 `json:"elo_after" db:"elo_after"`
	EloChange float64 `json:"elo_change" db:"elo_change"`

	// Won is true for the winner row of an applied change.
	Won bool `json:"won" db:"won"`
	// Compensation marks rows that undo an earlier change after a result correction.
	Compensation bool `json:"compensation" db:"compensation"`

	// Серия побед игрока до этого изменения; по ней откатывается исправленный результат.
	StreakBefore     int `json:"streak_before" db:"streak_before"`
	BestStreakBefore int `json:"best_streak_before" db:"best_streak_before"`

	// RankingVersion is the ranking version this change produced.
	RankingVersion int `json:"-" db:"ranking_version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
