// internal/models/tenant.go
// Tenant identity and lifecycle. Adapted from the teacher's user.go: a
// tenant is the multi-tenancy boundary the rest of the engine serializes
// writes against, not an authenticated principal.

package models

import "time"

// Tenant represents an operator running tournaments on the platform.
// Identity is the numeric id; everything else in the system is owned by
// exactly one tenant.
type Tenant struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Disabled  bool      `json:"disabled" db:"disabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TenantSettings holds the per-tenant configuration recognised by the
// timer scheduler and rate governor (§6 Configuration).
type TenantSettings struct {
	TenantID int64 `json:"tenant_id" db:"tenant_id"`

	PollIntervalMs   int `json:"poll_interval_ms" db:"poll_interval_ms"`
	FallbackDelayMs  int `json:"fallback_delay_ms" db:"fallback_delay_ms"`

	DQDefaultDuration  int    `json:"dq_default_duration" db:"dq_default_duration"`
	DQWarningThreshold int    `json:"dq_warning_threshold" db:"dq_warning_threshold"`
	AutoDQAction       string `json:"auto_dq_action" db:"auto_dq_action"` // notify | auto-dq

	SponsorRotationInterval int    `json:"sponsor_rotation_interval" db:"sponsor_rotation_interval"`
	SponsorRotationOrder    string `json:"sponsor_rotation_order" db:"sponsor_rotation_order"` // sequential | random
	SponsorTransitionMs     int    `json:"sponsor_transition_ms" db:"sponsor_transition_ms"`
	TimerShowDuration       int    `json:"timer_show_duration" db:"timer_show_duration"`
	TimerHideDuration       int    `json:"timer_hide_duration" db:"timer_hide_duration"`
}

const (
	AutoDQActionNotify = "notify"
	AutoDQActionAutoDQ = "auto-dq"

	SponsorRotationSequential = "sequential"
	SponsorRotationRandom     = "random"
)

// DefaultTenantSettings mirrors the §6 configuration defaults.
func DefaultTenantSettings(tenantID int64) TenantSettings {
	return TenantSettings{
		TenantID:                tenantID,
		PollIntervalMs:          5000,
		FallbackDelayMs:         30000,
		DQDefaultDuration:       120,
		DQWarningThreshold:      30,
		AutoDQAction:            AutoDQActionNotify,
		SponsorRotationInterval: 30,
		SponsorRotationOrder:    SponsorRotationSequential,
		SponsorTransitionMs:     500,
		TimerShowDuration:       20,
		TimerHideDuration:       10,
	}
}
