// internal/models/participant.go
// Participant (player/team) related models

package models

import "time"

// Participant represents a tournament participant.
type Participant struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Name         string    `json:"name" db:"name"`
	Seed         *int      `json:"seed,omitempty" db:"seed"`
	CheckedIn    bool      `json:"checked_in" db:"checked_in"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
