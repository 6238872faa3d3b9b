// internal/models/timer.go
// DQ timer data (§3). Timers themselves are not persisted — they live in
// the timer scheduler's memory and are lost on restart, per spec.

package models

import "time"

// DQTimerKey identifies a timer: at most one active timer may exist per key.
type DQTimerKey struct {
	TournamentID string
	MatchID      string
	Station      string
}

// DQTimer is a running disqualification countdown against a match slot.
type DQTimer struct {
	Key DQTimerKey

	TenantID          int64
	TargetParticipant string
	TargetName        string

	Start  time.Time
	Expiry time.Time

	WarningFired bool
}

// RemainingSeconds returns the whole seconds left until expiry, floored at
// zero, as of now.
func (t *DQTimer) RemainingSeconds(now time.Time) int {
	remaining := t.Expiry.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}
