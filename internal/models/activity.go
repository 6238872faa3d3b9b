// internal/models/activity.go
// Activity journal entries (§3, C9).

package models

import "time"

// ActivityCategory groups action tags for filtering/querying.
type ActivityCategory string

const (
	CategoryMatch   ActivityCategory = "match"
	CategoryTimer   ActivityCategory = "timer"
	CategorySponsor ActivityCategory = "sponsor"
	CategoryAdmin   ActivityCategory = "admin"
	CategorySystem  ActivityCategory = "system"
)

// ActivityEntry is one append-only journal record.
type ActivityEntry struct {
	ID        int64                  `json:"id"`
	TenantID  int64                  `json:"tenant_id"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Category  ActivityCategory       `json:"category"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// InferCategory derives a category from an action tag the way the
// journal does when an explicit category isn't supplied.
func InferCategory(action string) ActivityCategory {
	switch {
	case hasPrefix(action, "match."), hasPrefix(action, "station."):
		return CategoryMatch
	case hasPrefix(action, "timer."):
		return CategoryTimer
	case hasPrefix(action, "sponsor."):
		return CategorySponsor
	case hasPrefix(action, "admin."), hasPrefix(action, "impersonation."):
		return CategoryAdmin
	default:
		return CategorySystem
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
