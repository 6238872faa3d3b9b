// internal/models/match.go
// Match and bracket-graph models (§3).

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// MatchState is the lifecycle state of a match (§3 invariants).
type MatchState string

const (
	MatchPending   MatchState = "pending"
	MatchOpen      MatchState = "open"
	MatchUnderway  MatchState = "underway"
	MatchComplete  MatchState = "complete"
)

// Scores holds the reported score for a match, plus an optional free-form
// per-game breakdown (csv, as the spec's report-result command allows).
type Scores struct {
	P1  int    `json:"p1"`
	P2  int    `json:"p2"`
	CSV string `json:"csv,omitempty"`
}

func (s *Scores) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Scores", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

func (s Scores) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// StringList is a JSON-encoded slice of ids, used for the free-for-all
// lobby roster where a match can have more than two participants.
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Match represents one node of the bracket graph (§3).
type Match struct {
	ID           string `json:"id" db:"id"`
	TournamentID string `json:"tournament_id" db:"tournament_id"`

	// Identifier is the human label (W1-3, LF, GF, GF2, 3P, ...).
	Identifier string `json:"identifier" db:"identifier"`

	// Round is signed: negative denotes a losers-bracket round in
	// double elimination. BracketPosition orders matches within a round.
	Round           int  `json:"round" db:"round"`
	BracketPosition int  `json:"bracket_position" db:"bracket_position"`
	LosersBracket   bool `json:"losers_bracket" db:"losers_bracket"`

	Player1ID *string `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID *string `json:"player2_id,omitempty" db:"player2_id"`

	// LobbyParticipants holds the full roster of a free-for-all lobby,
	// in seed order. Player1ID/Player2ID still carry the first two
	// entrants for the formats that only ever have two players, but a
	// free-for-all lobby can exceed that, hence this separate slice.
	LobbyParticipants StringList `json:"lobby_participants,omitempty" db:"lobby_participants"`

	// Prereq links: the match whose outcome feeds each slot, and whether
	// that slot receives the winner or the loser of the prereq match.
	Prereq1MatchID *string `json:"prereq1_match_id,omitempty" db:"prereq1_match_id"`
	Prereq1IsLoser bool    `json:"prereq1_is_loser" db:"prereq1_is_loser"`
	Prereq2MatchID *string `json:"prereq2_match_id,omitempty" db:"prereq2_match_id"`
	Prereq2IsLoser bool    `json:"prereq2_is_loser" db:"prereq2_is_loser"`

	SuggestedPlayOrder *int `json:"suggested_play_order,omitempty" db:"suggested_play_order"`

	Scores   *Scores `json:"scores,omitempty" db:"scores"`
	WinnerID *string `json:"winner_id,omitempty" db:"winner_id"`
	LoserID  *string `json:"loser_id,omitempty" db:"loser_id"`
	Forfeit  bool    `json:"forfeit" db:"forfeit"`

	State MatchState `json:"state" db:"state"`

	IsBye              bool `json:"is_bye" db:"is_bye"`
	IsGrandFinals      bool `json:"is_grand_finals" db:"is_grand_finals"`
	IsGrandFinalsReset bool `json:"is_grand_finals_reset" db:"is_grand_finals_reset"`
	// Conditional marks a match that only gets played depending on an
	// earlier outcome (currently only GF2 under bracket-reset).
	Conditional bool `json:"conditional" db:"conditional"`

	StationID *string `json:"station_id,omitempty" db:"station_id"`

	UnderwayAt  *time.Time `json:"underway_at,omitempty" db:"underway_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Loser returns the non-winning participant of a completed match, or nil
// if the match is not complete or has no winner recorded.
func (m *Match) Loser() *string {
	if m.WinnerID == nil {
		return nil
	}
	if m.Player1ID != nil && *m.Player1ID == *m.WinnerID {
		return m.Player2ID
	}
	if m.Player2ID != nil && *m.Player2ID == *m.WinnerID {
		return m.Player1ID
	}
	return nil
}

// ReadyToOpen reports whether a pending match has both slots filled and
// should transition to open (§3 advancement rule).
func (m *Match) ReadyToOpen() bool {
	return m.State == MatchPending && m.Player1ID != nil && m.Player2ID != nil
}
