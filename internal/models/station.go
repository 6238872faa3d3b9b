// internal/models/station.go
// Station (physical play area) model. Adapted from the teacher's venue.go:
// a station is simpler than a venue (no availability rules, no type) but
// carries the bidirectional match link the spec requires.

package models

import "time"

// Station represents a named play area a match can be assigned to.
type Station struct {
	ID             string    `json:"id" db:"id"`
	TournamentID   string    `json:"tournament_id" db:"tournament_id"`
	Name           string    `json:"name" db:"name"`
	Active         bool      `json:"active" db:"active"`
	CurrentMatchID *string   `json:"current_match_id,omitempty" db:"current_match_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
