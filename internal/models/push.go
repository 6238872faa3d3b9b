// internal/models/push.go
// Push Envelope and Ack Status (§3).

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// PushSource tags where an envelope's data came from.
type PushSource string

const (
	SourceLocal PushSource = "local"
	SourceCache PushSource = "cache"
)

// MatchSnapshot is the per-match projection carried in a Push Envelope.
type MatchSnapshot struct {
	ID              string     `json:"id"`
	Identifier      string     `json:"identifier"`
	Round           int        `json:"round"`
	State           MatchState `json:"state"`
	Player1ID       *string    `json:"player1_id,omitempty"`
	Player2ID       *string    `json:"player2_id,omitempty"`
	WinnerID        *string    `json:"winner_id,omitempty"`
	Scores          *Scores    `json:"scores,omitempty"`
	StationID       *string    `json:"station_id,omitempty"`
	PlayOrder       *int       `json:"suggested_play_order,omitempty"`
}

// EnvelopeMetadata carries the aggregate counters the spec requires.
type EnvelopeMetadata struct {
	Open      int     `json:"open"`
	Underway  int     `json:"underway"`
	Complete  int     `json:"complete"`
	Pending   int     `json:"pending"`
	Total     int     `json:"total"`
	ProgressPct float64 `json:"progress_pct"`
}

// PushEnvelope is the full state snapshot pushed to displays (§3).
type PushEnvelope struct {
	TenantID           int64             `json:"tenant_id"`
	TournamentSlug     string            `json:"tournament_slug"`
	Matches            []MatchSnapshot   `json:"matches"`
	Podium             map[int]string    `json:"podium,omitempty"`
	NextSuggestedMatch *string           `json:"next_suggested_match,omitempty"`
	AvailableStations  []string          `json:"available_stations"`
	Metadata           EnvelopeMetadata  `json:"metadata"`
	Source             PushSource        `json:"source"`
	IsStale            bool              `json:"is_stale,omitempty"`
	CacheAgeMs         int64             `json:"cache_age_ms,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
}

// Hash computes the deterministic payload digest over (matches, podium)
// only, per §3's invariant that the hash must be stable across re-pushes
// of equivalent data and insensitive to source/staleness metadata.
func (e *PushEnvelope) Hash() string {
	type hashed struct {
		Matches []MatchSnapshot `json:"matches"`
		Podium  map[int]string  `json:"podium,omitempty"`
	}
	data, _ := json.Marshal(hashed{Matches: e.Matches, Podium: e.Podium})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AckStatus tracks primary-channel delivery/acknowledgement for one
// connected display (§3).
type AckStatus struct {
	DisplayID    string
	LastPushTime time.Time
	LastAckTime  time.Time
	PushCount    int
	AckCount     int
}

// NeedsHTTPFallback reports whether the secondary channel should be used,
// per §3's invariant: lastPushTime − lastAckTime > httpFallbackDelay. A
// display that has never acked has a zero LastAckTime, which already
// satisfies the inequality for any real push.
func (a *AckStatus) NeedsHTTPFallback(fallbackDelay time.Duration) bool {
	return a.LastPushTime.Sub(a.LastAckTime) > fallbackDelay
}
