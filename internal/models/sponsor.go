// internal/models/sponsor.go
// Sponsor item and per-tenant sponsor state (§3, §6).

package models

import "time"

// SponsorPosition is one of the six screen regions a sponsor can occupy.
type SponsorPosition string

const (
	PositionTopLeft     SponsorPosition = "top-left"
	PositionTopRight    SponsorPosition = "top-right"
	PositionBottomLeft  SponsorPosition = "bottom-left"
	PositionBottomRight SponsorPosition = "bottom-right"
	PositionTopBanner   SponsorPosition = "top-banner"
	PositionBottomBanner SponsorPosition = "bottom-banner"
)

// SponsorType distinguishes static images from video loops.
type SponsorType string

const (
	SponsorImage SponsorType = "image"
	SponsorVideo SponsorType = "video"
)

// SponsorItem is one piece of sponsor creative.
type SponsorItem struct {
	TenantID    int64           `json:"tenant_id"`
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	DisplayName string          `json:"display_name"`
	Position    SponsorPosition `json:"position"`
	Order       int             `json:"order"`
	SizePct     float64         `json:"size_pct,omitempty"`
	OpacityPct  float64         `json:"opacity_pct,omitempty"`
	RadiusPx    float64         `json:"radius_px,omitempty"`
	OffsetX     float64         `json:"offset_x,omitempty"`
	OffsetY     float64         `json:"offset_y,omitempty"`
	Active      bool            `json:"active"`
	Type        SponsorType     `json:"type"`
}

// SponsorRotationOrder selects how "next" is chosen within a position.
type SponsorRotationOrder string

const (
	RotationSequential SponsorRotationOrder = "sequential"
	RotationRandom     SponsorRotationOrder = "random"
)

// SponsorConfig is the tenant-wide sponsor feature configuration.
type SponsorConfig struct {
	Enabled             bool                  `json:"enabled"`
	RotationEnabled     bool                  `json:"rotation_enabled"`
	RotationOrder       SponsorRotationOrder  `json:"rotation_order"`
	RotationIntervalSec int                   `json:"rotation_interval_seconds"`
	RotationTransitionMs int                  `json:"rotation_transition_ms"`
	TimerViewEnabled    bool                  `json:"timer_view_enabled"`
	TimerShowDuration   int                   `json:"timer_show_duration_seconds"`
	TimerHideDuration   int                   `json:"timer_hide_duration_seconds"`
	DisplayTargets      []string              `json:"display_targets,omitempty"`
}

// SponsorState is the full per-tenant sponsor record, persisted as one
// JSON file (§6: `sponsor-state-<tenantId>`).
type SponsorState struct {
	TenantID      int64                      `json:"-"`
	Sponsors      []SponsorItem              `json:"sponsors"`
	Config        SponsorConfig              `json:"config"`
	CurrentIndex  map[SponsorPosition]int    `json:"current_index"`
	ActiveUserID  string                     `json:"active_user_id,omitempty"`
	LastUpdated   time.Time                  `json:"last_updated"`
}

// ActiveByPosition groups active sponsors by position, sorted by Order.
func (s *SponsorState) ActiveByPosition() map[SponsorPosition][]SponsorItem {
	grouped := make(map[SponsorPosition][]SponsorItem)
	for _, item := range s.Sponsors {
		if !item.Active {
			continue
		}
		grouped[item.Position] = append(grouped[item.Position], item)
	}
	for pos := range grouped {
		items := grouped[pos]
		for i := 1; i < len(items); i++ {
			j := i
			for j > 0 && items[j-1].Order > items[j].Order {
				items[j-1], items[j] = items[j], items[j-1]
				j--
			}
		}
		grouped[pos] = items
	}
	return grouped
}
