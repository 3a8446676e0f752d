package models

// Game is the reference row a tournament and a ranking point at.
type Game struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}
