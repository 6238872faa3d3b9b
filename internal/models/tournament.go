// internal/models/tournament.go
// Domain models representing core business entities

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Tournament represents a bracket run by a tenant.
type Tournament struct {
	ID            string           `json:"id" db:"id"`
	TenantID      int64            `json:"tenant_id" db:"tenant_id"`
	Slug          string           `json:"slug" db:"slug"`
	Name          string           `json:"name" db:"name"`
	Format        TournamentFormat `json:"format" db:"format"`
	State         TournamentState  `json:"state" db:"state"`
	FormatOptions FormatOptions    `json:"format_options,omitempty" db:"format_options"`
	Active        bool             `json:"active" db:"active"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty" db:"started_at"`
	EndedAt       *time.Time       `json:"ended_at,omitempty" db:"ended_at"`
}

// TournamentFormat enumerates the seven formats the bracket engine supports.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single-elim"
	FormatDoubleElimination TournamentFormat = "double-elim"
	FormatRoundRobin        TournamentFormat = "round-robin"
	FormatSwiss             TournamentFormat = "swiss"
	FormatTwoStage          TournamentFormat = "two-stage"
	FormatFreeForAll        TournamentFormat = "free-for-all"
	FormatLeaderboard       TournamentFormat = "leaderboard"
)

// TournamentState is the lifecycle state of a tournament.
type TournamentState string

const (
	StatePending        TournamentState = "pending"
	StateUnderway       TournamentState = "underway"
	StateComplete       TournamentState = "complete"
	StateAwaitingReview TournamentState = "awaiting-review"
)

// ByePlacement controls where single-elimination byes land.
type ByePlacement string

const (
	ByeTraditional ByePlacement = "traditional"
	ByeSpread      ByePlacement = "spread"
	ByeBottomHalf  ByePlacement = "bottom-half"
	ByeRandom      ByePlacement = "random"
)

// GrandFinalsModifier controls grand-finals shape in double elimination.
type GrandFinalsModifier string

const (
	GrandFinalsStandard GrandFinalsModifier = ""
	GrandFinalsSingle   GrandFinalsModifier = "single"
	GrandFinalsSkip     GrandFinalsModifier = "skip"
)

// PointsSystem selects how free-for-all placements convert to points.
type PointsSystem string

const (
	PointsF1            PointsSystem = "f1"
	PointsLinear        PointsSystem = "linear"
	PointsWinnerTakeAll PointsSystem = "winner-take-all"
	PointsCustom        PointsSystem = "custom"
)

// LeaderboardRanking selects the ranking model for the leaderboard format.
type LeaderboardRanking string

const (
	RankingPoints LeaderboardRanking = "points"
	RankingELO    LeaderboardRanking = "elo"
	RankingWins   LeaderboardRanking = "wins"
)

// FormatOptions stores format-specific configuration. Only the fields
// relevant to a tournament's format are populated; the others are zero
// valued and ignored by the bracket engine.
type FormatOptions struct {
	// Single elimination
	SeedingOrder    string       `json:"seeding_order,omitempty"` // "standard" | "sequential"
	ByePlacement    ByePlacement `json:"bye_placement,omitempty"`
	ThirdPlaceMatch bool         `json:"third_place_match,omitempty"`
	Compact         bool         `json:"compact,omitempty"`

	// Double elimination
	GrandFinalsModifier GrandFinalsModifier `json:"grand_finals_modifier,omitempty"`

	// Round robin
	Iterations int `json:"iterations,omitempty"`

	// Swiss
	Rounds     int     `json:"rounds,omitempty"`
	WinPoints  float64 `json:"win_points,omitempty"`
	DrawPoints float64 `json:"draw_points,omitempty"`
	LossPoints float64 `json:"loss_points,omitempty"`

	// Two-stage
	NumberOfGroups  int              `json:"number_of_groups,omitempty"`
	AdvancePerGroup int              `json:"advance_per_group,omitempty"`
	KnockoutFormat  TournamentFormat `json:"knockout_format,omitempty"`

	// Free-for-all
	LobbyMaxSize int          `json:"lobby_max_size,omitempty"`
	PointsSystem PointsSystem `json:"points_system,omitempty"`
	CustomPoints []int        `json:"custom_points,omitempty"`

	// Leaderboard
	RankingType        LeaderboardRanking `json:"ranking_type,omitempty"`
	DecayEnabled        bool              `json:"decay_enabled,omitempty"`
	DecayPeriodSeconds   int              `json:"decay_period_seconds,omitempty"`
	MinEventsToRank      int              `json:"min_events_to_rank,omitempty"`

	// Station auto-assignment, consumed by store.AutoAssignStations.
	AutoAssignStations bool `json:"auto_assign_stations,omitempty"`
}

func (f *FormatOptions) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into FormatOptions", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, f)
}

func (f FormatOptions) Value() (driver.Value, error) {
	return json.Marshal(f)
}
